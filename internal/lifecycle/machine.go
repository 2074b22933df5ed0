// Package lifecycle is the admissions state machine. It validates status
// transitions for the application, engagement and evaluation axes and
// derives the effective status shown to users. It performs no I/O: callers
// load a snapshot, ask the machine for the next snapshot and persist it.
package lifecycle

import (
	"fmt"

	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

// applicationEdges lists every legal single-step move on the application axis.
var applicationEdges = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationStatusInitiated:            {models.ApplicationStatusUnderReview},
	models.ApplicationStatusUnderReview:          {models.ApplicationStatusOnHold, models.ApplicationStatusAccepted, models.ApplicationStatusRejected},
	models.ApplicationStatusOnHold:               {models.ApplicationStatusUnderReview},
	models.ApplicationStatusAccepted:             {models.ApplicationStatusInterviewScheduled},
	models.ApplicationStatusInterviewScheduled:   {models.ApplicationStatusInterviewRescheduled, models.ApplicationStatusInterviewConcluded},
	models.ApplicationStatusInterviewRescheduled: {models.ApplicationStatusInterviewRescheduled, models.ApplicationStatusInterviewConcluded},
	models.ApplicationStatusInterviewConcluded:   {models.ApplicationStatusWaitlist, models.ApplicationStatusSelected, models.ApplicationStatusNotQualified},
	models.ApplicationStatusWaitlist:             {models.ApplicationStatusSelected, models.ApplicationStatusNotQualified},
}

// feedbackRequired holds the targets that must carry reviewer comments.
var feedbackRequired = map[string]struct{}{
	string(models.ApplicationStatusOnHold):   {},
	string(models.ApplicationStatusAccepted): {},
	string(models.ApplicationStatusRejected): {},
	string(models.EngagementStatusDropped):   {},
}

var evaluationEdges = map[models.EvaluationStatus][]models.EvaluationStatus{
	models.EvaluationStatusPending:     {models.EvaluationStatusUnderReview},
	models.EvaluationStatusUnderReview: {models.EvaluationStatusCompleted},
}

// Terminal reports whether an application status closes the application.
// Selected has no further application edges but continues into enrollment.
func Terminal(status models.ApplicationStatus) bool {
	return status == models.ApplicationStatusRejected || status == models.ApplicationStatusNotQualified
}

// CanTransition reports whether to is one edge away from from.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, next := range applicationEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func canEvaluate(from, to models.EvaluationStatus) bool {
	for _, next := range evaluationEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsApplicationStatus reports whether raw names a status on the application axis.
func IsApplicationStatus(raw string) bool {
	status := models.ApplicationStatus(raw)
	if _, ok := applicationEdges[status]; ok {
		return true
	}
	return status == models.ApplicationStatusRejected ||
		status == models.ApplicationStatusSelected ||
		status == models.ApplicationStatusNotQualified
}

// Machine applies transitions. NewID supplies identifiers for appended
// history entries and materialised schedule lines.
type Machine struct {
	NewID func() string
}

// New constructs a Machine.
func New(newID func() string) *Machine {
	return &Machine{NewID: newID}
}

// Result is the snapshot produced by a successful mutation together with
// any non-blocking warnings raised while re-resolving fees.
type Result struct {
	Engagement models.Engagement
	Warnings   []feeschedule.Warning
}

func (m *Machine) id() string {
	if m == nil || m.NewID == nil {
		return ""
	}
	return m.NewID()
}

func invalidTransition(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func precondition(message string) error {
	return appErrors.Clone(appErrors.ErrPreconditionFailed, message)
}

func validation(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

// stampSchedule attaches lines created by the resolver to the engagement.
func stampSchedule(schedule *models.FeeSchedule, engagementID string) {
	for _, line := range schedule.Lines() {
		if line.EngagementID == "" {
			line.EngagementID = engagementID
		}
		if line.Receipts == nil {
			line.Receipts = []models.Receipt{}
		}
	}
}
