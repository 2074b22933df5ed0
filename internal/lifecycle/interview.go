package lifecycle

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // interview timezones must resolve on hosts without zoneinfo

	"github.com/noah-isme/admissions-ledger-api/internal/models"
)

const meetingDateLayout = "2006-01-02"

var clockLayouts = []string{"3:04 PM", "3:04PM", "03:04 PM", "15:04", "15:04:05"}

// InterviewRequest carries the wall-clock inputs of an interview session.
type InterviewRequest struct {
	MeetingDate   string `json:"meetingDate" validate:"required"`
	StartTime     string `json:"startTime" validate:"required"`
	EndTime       string `json:"endTime" validate:"required"`
	Timezone      string `json:"timezone"`
	MeetingURL    string `json:"meetingUrl"`
	InterviewerID string `json:"interviewerId"`
}

// SessionInstants binds a meeting date and its clock times to a timezone and
// returns the absolute start and end instants in UTC.
func SessionInstants(date, start, end, timezone string) (time.Time, time.Time, error) {
	if strings.TrimSpace(timezone) == "" {
		return time.Time{}, time.Time{}, validation("interview timezone is required")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, time.Time{}, validation(fmt.Sprintf("unknown timezone %q", timezone))
	}
	day, err := time.ParseInLocation(meetingDateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, validation(fmt.Sprintf("meeting date %q must be YYYY-MM-DD", date))
	}
	startsAt, err := atClock(day, start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endsAt, err := atClock(day, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, validation("interview must end after it starts")
	}
	return startsAt.UTC(), endsAt.UTC(), nil
}

func atClock(day time.Time, raw string) (time.Time, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range clockLayouts {
		clock, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location()), nil
	}
	return time.Time{}, validation(fmt.Sprintf("unrecognised time %q", raw))
}

// NewSession validates the request and computes the session's instants once.
func NewSession(id string, req InterviewRequest, at time.Time) (models.InterviewSession, error) {
	startsAt, endsAt, err := SessionInstants(req.MeetingDate, req.StartTime, req.EndTime, req.Timezone)
	if err != nil {
		return models.InterviewSession{}, err
	}
	return models.InterviewSession{
		ID:            id,
		MeetingDate:   strings.TrimSpace(req.MeetingDate),
		StartTime:     strings.TrimSpace(req.StartTime),
		EndTime:       strings.TrimSpace(req.EndTime),
		Timezone:      req.Timezone,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
		MeetingURL:    req.MeetingURL,
		InterviewerID: req.InterviewerID,
		CreatedAt:     at.UTC(),
	}, nil
}
