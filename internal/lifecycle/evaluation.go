package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
)

// EvaluationRequest moves the litmus evaluation one step forward.
type EvaluationRequest struct {
	Target                    models.EvaluationStatus
	Rubric                    []models.RubricScore
	PerformanceRating         *int
	Feedback                  string
	ScholarshipRecommendation string
	ActorID                   string
	At                        time.Time
}

// TransitionEvaluation applies one step of pending → under review → completed.
// Completing requires a performance rating between 0 and MaxPerformanceRating.
func (m *Machine) TransitionEvaluation(e models.Engagement, req EvaluationRequest) (*Result, error) {
	if e.Closed() {
		return nil, invalidTransition("engagement %s is dropped", e.ID)
	}
	current := e.Evaluation.Status
	if current == "" {
		current = models.EvaluationStatusPending
	}
	if !canEvaluate(current, req.Target) {
		return nil, invalidTransition("cannot move evaluation from %q to %q", current, req.Target)
	}
	for _, score := range req.Rubric {
		if score.Possible < 0 || score.Earned < 0 || score.Earned > score.Possible {
			return nil, validation(fmt.Sprintf("rubric score for %s/%s must be within [0, %d]", score.TaskID, score.Criterion, score.Possible))
		}
	}

	at := req.At.UTC()
	next := e.Clone()
	next.Evaluation.Status = req.Target
	if len(req.Rubric) > 0 {
		next.Evaluation.Rubric = append([]models.RubricScore(nil), req.Rubric...)
	}
	if fb := strings.TrimSpace(req.Feedback); fb != "" {
		next.Evaluation.Feedback = fb
	}
	if rec := strings.TrimSpace(req.ScholarshipRecommendation); rec != "" {
		next.Evaluation.ScholarshipRecommendation = rec
	}
	if req.ActorID != "" {
		next.Evaluation.EvaluatorID = req.ActorID
	}

	if req.Target == models.EvaluationStatusCompleted {
		if req.PerformanceRating == nil {
			return nil, validation("performance rating is required to complete an evaluation")
		}
		rating := *req.PerformanceRating
		if rating < 0 || rating > models.MaxPerformanceRating {
			return nil, validation(fmt.Sprintf("performance rating must be within [0, %d]", models.MaxPerformanceRating))
		}
		next.Evaluation.PerformanceRating = &rating
		next.Evaluation.CompletedAt = &at
	}
	next.UpdatedAt = at
	return &Result{Engagement: next}, nil
}
