package lifecycle

import (
	"strings"
	"time"

	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

// TransitionRequest asks the machine to move an engagement to Target, which
// names either an application status or one of the engagement statuses
// "enrolled" and "dropped". FeeConfig is required when the target is
// "selected".
type TransitionRequest struct {
	Target    string
	Feedback  string
	ActorID   string
	Interview *InterviewRequest
	FeeConfig *models.FeeConfig
	At        time.Time
}

// Transition validates the request against the snapshot and returns the next
// snapshot. The input is never modified.
func (m *Machine) Transition(e models.Engagement, req TransitionRequest) (*Result, error) {
	if e.Closed() {
		return nil, invalidTransition("engagement %s is dropped", e.ID)
	}
	at := req.At.UTC()
	feedback := strings.TrimSpace(req.Feedback)

	switch models.EngagementStatus(req.Target) {
	case models.EngagementStatusEnrolled:
		return m.enroll(e, feedback, req.ActorID, at)
	case models.EngagementStatusDropped:
		return m.drop(e, feedback, req.ActorID, at)
	}

	if !IsApplicationStatus(req.Target) {
		return nil, validation("unknown target status " + req.Target)
	}
	target := models.ApplicationStatus(req.Target)
	stored := e.Application.Status
	current := EffectiveStatus(e, at)
	if !CanTransition(current, target) && !CanTransition(stored, target) {
		return nil, invalidTransition("cannot move application from %q to %q", current, target)
	}
	if _, ok := feedbackRequired[req.Target]; ok && feedback == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingFeedback, "feedback is required to move an application to "+req.Target)
	}

	next := e.Clone()
	switch target {
	case models.ApplicationStatusUnderReview:
		if stored == models.ApplicationStatusOnHold {
			next.Application.RevisionCount++
		}
		if next.Status == models.EngagementStatusApplied {
			next.Status = models.EngagementStatusReviewing
		}
	case models.ApplicationStatusInterviewScheduled, models.ApplicationStatusInterviewRescheduled:
		if req.Interview == nil {
			return nil, validation("interview details are required to schedule an interview")
		}
		session, err := NewSession(m.id(), *req.Interview, at)
		if err != nil {
			return nil, err
		}
		next.Interviews = append(next.Interviews, session)
	}

	result := &Result{}
	if target == models.ApplicationStatusSelected {
		if req.FeeConfig == nil {
			return nil, precondition("cohort fee configuration is required to select an applicant")
		}
		schedule, warnings, err := feeschedule.Reresolve(next.Schedule, *req.FeeConfig, next.Award, m.id)
		if err != nil {
			return nil, err
		}
		stampSchedule(schedule, next.ID)
		next.Schedule = schedule
		result.Warnings = warnings
	}

	next.Application.Status = target
	if feedback != "" {
		next.Application.Feedback = append(next.Application.Feedback, models.FeedbackEntry{
			ID:        m.id(),
			Status:    target,
			Comments:  feedback,
			AuthorID:  req.ActorID,
			CreatedAt: at,
		})
	}
	next.UpdatedAt = at
	result.Engagement = next
	return result, nil
}

func (m *Machine) enroll(e models.Engagement, feedback, actorID string, at time.Time) (*Result, error) {
	if e.Status != models.EngagementStatusReviewing {
		return nil, invalidTransition("cannot enroll an engagement in status %q", e.Status)
	}
	if e.Application.Status != models.ApplicationStatusSelected {
		return nil, precondition("only selected applicants can enroll")
	}
	if e.Schedule == nil {
		return nil, precondition("fee schedule has not been materialised")
	}
	if fee := e.Schedule.AdmissionFee; fee != nil && fee.VerificationStatus() != models.VerificationPaid {
		return nil, precondition("admission fee must be paid before enrollment")
	}

	next := e.Clone()
	next.Status = models.EngagementStatusEnrolled
	if feedback != "" {
		next.Application.Feedback = append(next.Application.Feedback, models.FeedbackEntry{
			ID:        m.id(),
			Status:    next.Application.Status,
			Comments:  feedback,
			AuthorID:  actorID,
			CreatedAt: at,
		})
	}
	next.UpdatedAt = at
	return &Result{Engagement: next}, nil
}

func (m *Machine) drop(e models.Engagement, feedback, actorID string, at time.Time) (*Result, error) {
	if feedback == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingFeedback, "a reason is required to drop an engagement")
	}
	if !droppable(e, at) {
		return nil, invalidTransition("cannot drop an application closed as %q", EffectiveStatus(e, at))
	}
	next := e.Clone()
	next.Status = models.EngagementStatusDropped
	next.DropReason = &feedback
	next.Application.Feedback = append(next.Application.Feedback, models.FeedbackEntry{
		ID:        m.id(),
		Status:    EffectiveStatus(e, at),
		Comments:  feedback,
		AuthorID:  actorID,
		CreatedAt: at,
	})
	next.UpdatedAt = at
	return &Result{Engagement: next}, nil
}
