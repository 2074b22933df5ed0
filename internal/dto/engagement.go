package dto

import (
	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/ledger"
	"github.com/noah-isme/admissions-ledger-api/internal/lifecycle"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
)

// SubmitApplicationRequest opens a new engagement for a student in a cohort.
type SubmitApplicationRequest struct {
	StudentID       string                  `json:"studentId" validate:"required"`
	CohortID        string                  `json:"cohortId" validate:"required"`
	TaskSubmissions []models.TaskSubmission `json:"taskSubmissions" validate:"dive"`
}

// TransitionRequest asks for a status change on the application or
// engagement axis.
type TransitionRequest struct {
	Target    string                     `json:"target" validate:"required"`
	Feedback  string                     `json:"feedback" validate:"max=4000"`
	Interview *lifecycle.InterviewRequest `json:"interview,omitempty"`
}

// EvaluationRequest moves the litmus evaluation forward.
type EvaluationRequest struct {
	Target                    models.EvaluationStatus `json:"target" validate:"required,oneof='under review' completed"`
	Rubric                    []models.RubricScore    `json:"rubric"`
	PerformanceRating         *int                    `json:"performanceRating"`
	Feedback                  string                  `json:"feedback" validate:"max=4000"`
	ScholarshipRecommendation string                  `json:"scholarshipRecommendation"`
}

// AwardScholarshipRequest grants a configured slab.
type AwardScholarshipRequest struct {
	SlabID string `json:"slabId" validate:"required"`
}

// SaveFeeConfigRequest replaces a cohort's fee structure.
type SaveFeeConfigRequest struct {
	Name string `json:"name" validate:"required"`
	models.FeeConfig
}

// RecordReceiptRequest attaches an uploaded proof of payment.
type RecordReceiptRequest struct {
	FileURL string `json:"fileUrl" validate:"required,url"`
}

// VerifyInstallmentRequest is a fee collector's decision.
type VerifyInstallmentRequest struct {
	Decision models.ReceiptDecision `json:"decision" validate:"required,oneof=paid flagged"`
	Comment  string                 `json:"comment" validate:"max=2000"`
}

// EngagementView is an engagement with the state derived at a given instant.
type EngagementView struct {
	models.Engagement
	EffectiveStatus    models.ApplicationStatus `json:"effectiveStatus"`
	AllowedTransitions []string                 `json:"allowedTransitions"`
	Payment            ledger.Summary           `json:"payment"`
}

// EngagementMutation is the outcome of a lifecycle write.
type EngagementMutation struct {
	Engagement EngagementView
	Warnings   []feeschedule.Warning
}

// InstallmentMutation is the outcome of a ledger write.
type InstallmentMutation struct {
	Installment ledger.LineView
	Outcome     ledger.Outcome
}
