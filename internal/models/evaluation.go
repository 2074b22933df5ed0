package models

import "time"

// EvaluationStatus tracks the litmus test sub-machine.
type EvaluationStatus string

// Evaluation statuses.
const (
	EvaluationStatusPending     EvaluationStatus = "pending"
	EvaluationStatusUnderReview EvaluationStatus = "under review"
	EvaluationStatusCompleted   EvaluationStatus = "completed"
)

// MaxPerformanceRating bounds Evaluation.PerformanceRating.
const MaxPerformanceRating = 5

// RubricScore is the score earned on one criterion of a task.
type RubricScore struct {
	TaskID    string `json:"taskId"`
	Criterion string `json:"criterion"`
	Earned    int    `json:"earned"`
	Possible  int    `json:"possible"`
}

// Evaluation is the rubric-scored challenge used to assign scholarships.
type Evaluation struct {
	Status                    EvaluationStatus `db:"evaluation_status" json:"status"`
	Rubric                    []RubricScore    `db:"-" json:"rubric"`
	PerformanceRating         *int             `db:"performance_rating" json:"performanceRating,omitempty"`
	Feedback                  string           `db:"evaluation_feedback" json:"feedback,omitempty"`
	ScholarshipRecommendation string           `db:"scholarship_recommendation" json:"scholarshipRecommendation,omitempty"`
	EvaluatorID               string           `db:"evaluator_id" json:"evaluatorId,omitempty"`
	CompletedAt               *time.Time       `db:"evaluation_completed_at" json:"completedAt,omitempty"`
}

// Completed reports whether the evaluation reached its terminal state.
func (e Evaluation) Completed() bool {
	return e.Status == EvaluationStatusCompleted
}

// Score returns the earned and possible rubric totals.
func (e Evaluation) Score() (earned, possible int) {
	for _, r := range e.Rubric {
		earned += r.Earned
		possible += r.Possible
	}
	return earned, possible
}
