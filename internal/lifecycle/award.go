package lifecycle

import (
	"fmt"
	"time"

	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
)

// AwardRequest grants one of the cohort's slabs to an engagement.
type AwardRequest struct {
	SlabID    string
	FeeConfig models.FeeConfig
	ActorID   string
	At        time.Time
}

// AwardScholarship replaces the engagement's award and re-resolves any
// materialised schedule. Lines the student already acted on keep their
// amounts and are reported as stale-award warnings.
func (m *Machine) AwardScholarship(e models.Engagement, req AwardRequest) (*Result, error) {
	if e.Closed() {
		return nil, invalidTransition("engagement %s is dropped", e.ID)
	}
	if !e.Evaluation.Completed() {
		return nil, precondition("scholarships can only be awarded after the evaluation is completed")
	}
	slab, ok := req.FeeConfig.Slab(req.SlabID)
	if !ok {
		return nil, validation(fmt.Sprintf("slab %q is not configured for cohort %s", req.SlabID, req.FeeConfig.CohortID))
	}
	if !Clears(e.Evaluation, slab.ClearanceThreshold) {
		return nil, precondition(fmt.Sprintf("evaluation score does not clear the %d%% threshold of slab %s", slab.ClearanceThreshold, slab.Name))
	}
	if e.Award != nil && e.Award.SlabID == slab.ID && e.Award.Percentage.Equal(slab.Percentage.Decimal) {
		return &Result{Engagement: e.Clone()}, nil
	}

	at := req.At.UTC()
	next := e.Clone()
	award := models.AwardFromSlab(slab, req.ActorID, at)
	next.Award = &award

	result := &Result{}
	if next.Schedule != nil {
		schedule, warnings, err := feeschedule.Reresolve(next.Schedule, req.FeeConfig, next.Award, m.id)
		if err != nil {
			return nil, err
		}
		stampSchedule(schedule, next.ID)
		next.Schedule = schedule
		result.Warnings = warnings
	}
	next.UpdatedAt = at
	result.Engagement = next
	return result, nil
}

// Clears reports whether the rubric score reaches threshold percent. An
// unscored rubric or a zero threshold always clears.
func Clears(eval models.Evaluation, threshold int) bool {
	if threshold <= 0 {
		return true
	}
	earned, possible := eval.Score()
	if possible == 0 {
		return true
	}
	return earned*100 >= threshold*possible
}
