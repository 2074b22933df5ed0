package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

func intPtr(v int) *int { return &v }

func completedEngagement(t *testing.T, rubric []models.RubricScore) models.Engagement {
	t.Helper()
	m := newMachine()
	e := engagementAt(models.ApplicationStatusInterviewConcluded)
	res, err := m.TransitionEvaluation(e, EvaluationRequest{Target: models.EvaluationStatusUnderReview, At: testNow})
	require.NoError(t, err)
	res, err = m.TransitionEvaluation(res.Engagement, EvaluationRequest{
		Target:            models.EvaluationStatusCompleted,
		Rubric:            rubric,
		PerformanceRating: intPtr(4),
		Feedback:          "strong fundamentals",
		ActorID:           "evaluator-1",
		At:                testNow,
	})
	require.NoError(t, err)
	return res.Engagement
}

func TestEvaluationSubMachine(t *testing.T) {
	e := completedEngagement(t, []models.RubricScore{{TaskID: "t1", Criterion: "correctness", Earned: 8, Possible: 10}})
	assert.True(t, e.Evaluation.Completed())
	require.NotNil(t, e.Evaluation.CompletedAt)
	assert.Equal(t, 4, *e.Evaluation.PerformanceRating)
	assert.Equal(t, "evaluator-1", e.Evaluation.EvaluatorID)

	_, err := newMachine().TransitionEvaluation(e, EvaluationRequest{Target: models.EvaluationStatusUnderReview, At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestEvaluationRejectsSkippedStepsAndBadRatings(t *testing.T) {
	m := newMachine()
	e := engagementAt(models.ApplicationStatusInterviewConcluded)

	_, err := m.TransitionEvaluation(e, EvaluationRequest{Target: models.EvaluationStatusCompleted, PerformanceRating: intPtr(3), At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	e.Evaluation.Status = models.EvaluationStatusUnderReview
	for _, rating := range []*int{nil, intPtr(-1), intPtr(6)} {
		_, err = m.TransitionEvaluation(e, EvaluationRequest{Target: models.EvaluationStatusCompleted, PerformanceRating: rating, At: testNow})
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
	}

	_, err = m.TransitionEvaluation(e, EvaluationRequest{
		Target:            models.EvaluationStatusCompleted,
		PerformanceRating: intPtr(3),
		Rubric:            []models.RubricScore{{TaskID: "t1", Criterion: "style", Earned: 11, Possible: 10}},
		At:                testNow,
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAwardRequiresCompletedEvaluation(t *testing.T) {
	_, err := newMachine().AwardScholarship(engagementAt(models.ApplicationStatusInterviewConcluded), AwardRequest{SlabID: "slab-merit", FeeConfig: cohortConfig(), At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestAwardHonoursClearanceThreshold(t *testing.T) {
	e := completedEngagement(t, []models.RubricScore{{TaskID: "t1", Criterion: "correctness", Earned: 8, Possible: 10}})

	_, err := newMachine().AwardScholarship(e, AwardRequest{SlabID: "slab-elite", FeeConfig: cohortConfig(), At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	_, err = newMachine().AwardScholarship(e, AwardRequest{SlabID: "slab-missing", FeeConfig: cohortConfig(), At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	res, err := newMachine().AwardScholarship(e, AwardRequest{SlabID: "slab-merit", FeeConfig: cohortConfig(), ActorID: "evaluator-1", At: testNow})
	require.NoError(t, err)
	require.NotNil(t, res.Engagement.Award)
	assert.Equal(t, "Merit", res.Engagement.Award.SlabName)
	assert.Nil(t, res.Engagement.Schedule)
}

func TestAwardAfterSelectionReresolvesPendingLines(t *testing.T) {
	m := newMachine()
	e := completedEngagement(t, nil)
	e.Application.Status = models.ApplicationStatusWaitlist
	selected, err := m.Transition(e, TransitionRequest{Target: "selected", FeeConfig: ptrConfig(cohortConfig()), At: testNow})
	require.NoError(t, err)

	res, err := m.AwardScholarship(selected.Engagement, AwardRequest{SlabID: "slab-merit", FeeConfig: cohortConfig(), At: testNow})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	line := res.Engagement.Schedule.Installments[0]
	assert.Equal(t, selected.Engagement.Schedule.Installments[0].ID, line.ID)
	assert.Equal(t, money.Amount(16000000), line.AmountPayable)
	assert.Equal(t, money.Amount(17000000), res.Engagement.Schedule.TotalExpected())

	submitted := res.Engagement.Clone()
	submitted.Schedule.Installments[0].Receipts = []models.Receipt{{ID: "r1", FileURL: "https://files/r1.pdf", UploadedAt: testNow}}
	cfg := cohortConfig()
	cfg.Slabs[1].ClearanceThreshold = 0
	changed, err := m.AwardScholarship(submitted, AwardRequest{SlabID: "slab-elite", FeeConfig: cfg, At: testNow.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, changed.Warnings, 1)
	assert.Equal(t, feeschedule.WarningStaleAward, changed.Warnings[0].Code)
	assert.Equal(t, money.Amount(16000000), changed.Engagement.Schedule.Installments[0].AmountPayable)
	assert.Equal(t, "Elite", changed.Engagement.Award.SlabName)
}

func TestClears(t *testing.T) {
	eval := models.Evaluation{Rubric: []models.RubricScore{{Earned: 45, Possible: 50}}}
	assert.True(t, Clears(eval, 90))
	assert.False(t, Clears(eval, 91))
	assert.True(t, Clears(models.Evaluation{}, 95))
	assert.True(t, Clears(eval, 0))
}
