package lifecycle

import (
	"time"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
)

// EffectiveStatus is the application status a user should see at now. A
// scheduled or rescheduled interview reads as concluded once the current
// session's end instant has passed.
func EffectiveStatus(e models.Engagement, now time.Time) models.ApplicationStatus {
	status := e.Application.Status
	switch status {
	case models.ApplicationStatusInterviewScheduled, models.ApplicationStatusInterviewRescheduled:
		if session := e.CurrentInterview(); session != nil && session.Ended(now) {
			return models.ApplicationStatusInterviewConcluded
		}
	}
	return status
}

// Effective returns a view of e with the effective status applied. Applying
// it twice with the same now yields the same view.
func Effective(e models.Engagement, now time.Time) models.Engagement {
	e.Application.Status = EffectiveStatus(e, now)
	return e
}

// AllowedTargets lists the transitions a caller may request at now, in a
// stable order.
func AllowedTargets(e models.Engagement, now time.Time) []string {
	if e.Closed() {
		return []string{}
	}
	targets := []string{}
	seen := map[models.ApplicationStatus]bool{}
	add := func(from models.ApplicationStatus) {
		for _, next := range applicationEdges[from] {
			if !seen[next] {
				seen[next] = true
				targets = append(targets, string(next))
			}
		}
	}
	add(EffectiveStatus(e, now))
	add(e.Application.Status)
	if e.Status == models.EngagementStatusReviewing && e.Application.Status == models.ApplicationStatusSelected {
		targets = append(targets, string(models.EngagementStatusEnrolled))
	}
	if droppable(e, now) {
		targets = append(targets, string(models.EngagementStatusDropped))
	}
	return targets
}

func droppable(e models.Engagement, now time.Time) bool {
	return !Terminal(EffectiveStatus(e, now))
}
