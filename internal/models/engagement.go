package models

import "time"

// EngagementStatus represents the coarse lifecycle of a student-cohort engagement.
type EngagementStatus string

// Possible engagement statuses.
const (
	EngagementStatusApplied   EngagementStatus = "applied"
	EngagementStatusReviewing EngagementStatus = "reviewing"
	EngagementStatusEnrolled  EngagementStatus = "enrolled"
	EngagementStatusDropped   EngagementStatus = "dropped"
)

// Engagement is a student's relationship to one cohort offering.
type Engagement struct {
	ID          string             `db:"id" json:"id"`
	StudentID   string             `db:"student_id" json:"studentId"`
	CohortID    string             `db:"cohort_id" json:"cohortId"`
	Status      EngagementStatus   `db:"status" json:"status"`
	Application Application        `db:"-" json:"application"`
	Interviews  []InterviewSession `db:"-" json:"interviews"`
	Evaluation  Evaluation         `db:"-" json:"evaluation"`
	Award       *ScholarshipAward  `db:"-" json:"award,omitempty"`
	Schedule    *FeeSchedule       `db:"-" json:"schedule,omitempty"`
	DropReason  *string            `db:"drop_reason" json:"dropReason,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updatedAt"`
}

// CurrentInterview returns the most recent interview session, if any.
func (e *Engagement) CurrentInterview() *InterviewSession {
	if e == nil || len(e.Interviews) == 0 {
		return nil
	}
	return &e.Interviews[len(e.Interviews)-1]
}

// Closed reports whether the engagement accepts no further lifecycle changes.
func (e *Engagement) Closed() bool {
	return e != nil && e.Status == EngagementStatusDropped
}

// LatestEngagement returns the authoritative engagement from a student's
// history, which is always the last element.
func LatestEngagement(history []Engagement) (*Engagement, bool) {
	if len(history) == 0 {
		return nil, false
	}
	return &history[len(history)-1], true
}

// EngagementFilter constrains engagement listing.
type EngagementFilter struct {
	CohortID  string
	StudentID string
	Status    EngagementStatus
	Page      int
	PageSize  int
}

// Clone returns a deep copy whose history slices can be appended to without
// touching the original snapshot.
func (e Engagement) Clone() Engagement {
	out := e
	out.Application.Feedback = append([]FeedbackEntry(nil), e.Application.Feedback...)
	out.Application.TaskSubmissions = append([]TaskSubmission(nil), e.Application.TaskSubmissions...)
	out.Interviews = append([]InterviewSession(nil), e.Interviews...)
	out.Evaluation.Rubric = append([]RubricScore(nil), e.Evaluation.Rubric...)
	if e.Award != nil {
		award := *e.Award
		out.Award = &award
	}
	if e.Schedule != nil {
		out.Schedule = e.Schedule.Clone()
	}
	return out
}
