package models

import "time"

// InterviewSession is one scheduled interview. StartsAt and EndsAt are the
// absolute instants derived once from the wall-clock inputs and timezone.
type InterviewSession struct {
	ID            string    `db:"id" json:"id"`
	MeetingDate   string    `db:"meeting_date" json:"meetingDate"`
	StartTime     string    `db:"start_time" json:"startTime"`
	EndTime       string    `db:"end_time" json:"endTime"`
	Timezone      string    `db:"timezone" json:"timezone"`
	StartsAt      time.Time `db:"starts_at" json:"startsAt"`
	EndsAt        time.Time `db:"ends_at" json:"endsAt"`
	MeetingURL    string    `db:"meeting_url" json:"meetingUrl,omitempty"`
	InterviewerID string    `db:"interviewer_id" json:"interviewerId,omitempty"`
	Feedback      string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Ended reports whether the session's end instant is strictly before now.
func (s InterviewSession) Ended(now time.Time) bool {
	return !s.EndsAt.IsZero() && now.After(s.EndsAt)
}
