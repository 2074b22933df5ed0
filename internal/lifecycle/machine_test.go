package lifecycle

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newMachine() *Machine {
	n := 0
	return New(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func engagementAt(status models.ApplicationStatus) models.Engagement {
	return models.Engagement{
		ID:        "eng-1",
		StudentID: "student-1",
		CohortID:  "cohort-1",
		Status:    models.EngagementStatusReviewing,
		Application: models.Application{
			Status:        status,
			RevisionCount: 1,
		},
		Evaluation: models.Evaluation{Status: models.EvaluationStatusPending},
	}
}

func cohortConfig() models.FeeConfig {
	return models.FeeConfig{
		CohortID:            "cohort-1",
		Currency:            "INR",
		Plan:                models.FeePlanOneShot,
		AdmissionFee:        1000000,
		AdmissionFeeDueDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		OneShot:             &models.OneShotConfig{BaseFee: 20000000, DueDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		Slabs: []models.ScholarshipSlab{
			{ID: "slab-merit", Name: "Merit", Percentage: money.MustPercentage("20")},
			{ID: "slab-elite", Name: "Elite", Percentage: money.MustPercentage("50"), ClearanceThreshold: 90},
		},
	}
}

func TestOnHoldAndResubmissionCountsRevision(t *testing.T) {
	m := newMachine()
	e := engagementAt(models.ApplicationStatusUnderReview)

	held, err := m.Transition(e, TransitionRequest{Target: "on hold", Feedback: "incomplete documents", ActorID: "reviewer-1", At: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusOnHold, held.Engagement.Application.Status)
	assert.Equal(t, 1, held.Engagement.Application.RevisionCount)
	assert.False(t, held.Engagement.Application.Revised())
	require.Len(t, held.Engagement.Application.Feedback, 1)
	assert.Equal(t, "reviewer-1", held.Engagement.Application.Feedback[0].AuthorID)
	assert.Equal(t, "incomplete documents", held.Engagement.Application.Feedback[0].Comments)

	resubmitted, err := m.Transition(held.Engagement, TransitionRequest{Target: "under review", ActorID: "student-1", At: testNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 2, resubmitted.Engagement.Application.RevisionCount)
	assert.True(t, resubmitted.Engagement.Application.Revised())
	assert.Len(t, resubmitted.Engagement.Application.Feedback, 1)

	assert.Empty(t, e.Application.Feedback, "input snapshot must not change")
}

func TestFeedbackRequiredTargets(t *testing.T) {
	m := newMachine()
	for _, target := range []string{"on hold", "accepted", "rejected"} {
		t.Run(target, func(t *testing.T) {
			_, err := m.Transition(engagementAt(models.ApplicationStatusUnderReview), TransitionRequest{Target: target, Feedback: "   ", At: testNow})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrMissingFeedback))
		})
	}
}

func TestIllegalEdgesAreRejected(t *testing.T) {
	m := newMachine()
	cases := []struct {
		from   models.ApplicationStatus
		target string
	}{
		{models.ApplicationStatusInitiated, "accepted"},
		{models.ApplicationStatusUnderReview, "selected"},
		{models.ApplicationStatusRejected, "under review"},
		{models.ApplicationStatusNotQualified, "selected"},
		{models.ApplicationStatusAccepted, "interview concluded"},
		{models.ApplicationStatusOnHold, "accepted"},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+tc.target, func(t *testing.T) {
			_, err := m.Transition(engagementAt(tc.from), TransitionRequest{Target: tc.target, Feedback: "note", At: testNow})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
		})
	}
}

func TestInitiatedMovesEngagementToReviewing(t *testing.T) {
	e := engagementAt(models.ApplicationStatusInitiated)
	e.Status = models.EngagementStatusApplied

	res, err := newMachine().Transition(e, TransitionRequest{Target: "under review", At: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStatusReviewing, res.Engagement.Status)
	assert.Equal(t, 1, res.Engagement.Application.RevisionCount)
}

func scheduledEngagement(t *testing.T) models.Engagement {
	t.Helper()
	res, err := newMachine().Transition(engagementAt(models.ApplicationStatusAccepted), TransitionRequest{
		Target: "interview scheduled",
		Interview: &InterviewRequest{
			MeetingDate: "2024-03-20",
			StartTime:   "2:30 PM",
			EndTime:     "3:00 PM",
			Timezone:    "Asia/Kolkata",
		},
		At: testNow,
	})
	require.NoError(t, err)
	return res.Engagement
}

func TestEffectiveStatusConcludesAfterInterviewEnds(t *testing.T) {
	e := scheduledEngagement(t)
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	after := time.Date(2024, 3, 20, 16, 0, 0, 0, loc)
	before := time.Date(2024, 3, 20, 14, 0, 0, 0, loc)
	assert.Equal(t, models.ApplicationStatusInterviewConcluded, EffectiveStatus(e, after))
	assert.Equal(t, models.ApplicationStatusInterviewScheduled, EffectiveStatus(e, before))

	session := e.CurrentInterview()
	require.NotNil(t, session)
	assert.Equal(t, time.Date(2024, 3, 20, 9, 30, 0, 0, time.UTC), session.EndsAt)
}

func TestEffectiveIsIdempotent(t *testing.T) {
	e := scheduledEngagement(t)
	for _, now := range []time.Time{testNow, e.CurrentInterview().EndsAt, e.CurrentInterview().EndsAt.Add(time.Second)} {
		once := Effective(e, now)
		twice := Effective(once, now)
		assert.Equal(t, once, twice)
		assert.Equal(t, EffectiveStatus(e, now), EffectiveStatus(once, now))
	}
}

func TestTransitionsFollowEffectiveStatus(t *testing.T) {
	m := newMachine()
	e := scheduledEngagement(t)
	late := e.CurrentInterview().EndsAt.Add(time.Hour)

	res, err := m.Transition(e, TransitionRequest{Target: "selected", FeeConfig: ptrConfig(cohortConfig()), At: late})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSelected, res.Engagement.Application.Status)

	_, err = m.Transition(e, TransitionRequest{Target: "selected", FeeConfig: ptrConfig(cohortConfig()), At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestRescheduleAppendsSession(t *testing.T) {
	e := scheduledEngagement(t)
	res, err := newMachine().Transition(e, TransitionRequest{
		Target:    "interview rescheduled",
		Interview: &InterviewRequest{MeetingDate: "2024-03-22", StartTime: "10:00", EndTime: "10:45", Timezone: "UTC"},
		At:        testNow,
	})
	require.NoError(t, err)
	require.Len(t, res.Engagement.Interviews, 2)
	assert.Equal(t, time.Date(2024, 3, 22, 10, 45, 0, 0, time.UTC), res.Engagement.CurrentInterview().EndsAt)
}

func TestSchedulingValidatesInterview(t *testing.T) {
	m := newMachine()
	e := engagementAt(models.ApplicationStatusAccepted)
	cases := map[string]*InterviewRequest{
		"missing":       nil,
		"no timezone":   {MeetingDate: "2024-03-20", StartTime: "2:00 PM", EndTime: "3:00 PM"},
		"bad timezone":  {MeetingDate: "2024-03-20", StartTime: "2:00 PM", EndTime: "3:00 PM", Timezone: "Mars/Base"},
		"end precedes":  {MeetingDate: "2024-03-20", StartTime: "3:00 PM", EndTime: "2:00 PM", Timezone: "UTC"},
		"garbled clock": {MeetingDate: "2024-03-20", StartTime: "afternoon", EndTime: "3:00 PM", Timezone: "UTC"},
	}
	for name, interview := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Transition(e, TransitionRequest{Target: "interview scheduled", Interview: interview, At: testNow})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func ptrConfig(cfg models.FeeConfig) *models.FeeConfig { return &cfg }

func TestSelectionMaterialisesSchedule(t *testing.T) {
	e := engagementAt(models.ApplicationStatusWaitlist)
	res, err := newMachine().Transition(e, TransitionRequest{Target: "selected", FeeConfig: ptrConfig(cohortConfig()), At: testNow})
	require.NoError(t, err)

	schedule := res.Engagement.Schedule
	require.NotNil(t, schedule)
	assert.Equal(t, money.Amount(21000000), schedule.TotalExpected())
	for _, line := range schedule.Lines() {
		assert.Equal(t, "eng-1", line.EngagementID)
		assert.NotEmpty(t, line.ID)
	}

	_, err = newMachine().Transition(e, TransitionRequest{Target: "selected", At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestEnrollmentRequiresPaidAdmissionFee(t *testing.T) {
	m := newMachine()
	selected, err := m.Transition(engagementAt(models.ApplicationStatusWaitlist), TransitionRequest{Target: "selected", FeeConfig: ptrConfig(cohortConfig()), At: testNow})
	require.NoError(t, err)

	_, err = m.Transition(selected.Engagement, TransitionRequest{Target: "enrolled", At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	paid := selected.Engagement.Clone()
	decided := testNow
	paid.Schedule.AdmissionFee.Receipts = []models.Receipt{{ID: "r1", Decision: models.DecisionPaid, DecidedAt: &decided}}
	res, err := m.Transition(paid, TransitionRequest{Target: "enrolled", At: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStatusEnrolled, res.Engagement.Status)

	_, err = m.Transition(engagementAt(models.ApplicationStatusAccepted), TransitionRequest{Target: "enrolled", At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestDropIsTerminalAndNeedsReason(t *testing.T) {
	m := newMachine()
	e := engagementAt(models.ApplicationStatusAccepted)

	_, err := m.Transition(e, TransitionRequest{Target: "dropped", At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrMissingFeedback))

	res, err := m.Transition(e, TransitionRequest{Target: "dropped", Feedback: "joined another programme", ActorID: "admin-1", At: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStatusDropped, res.Engagement.Status)
	require.NotNil(t, res.Engagement.DropReason)
	assert.Equal(t, "joined another programme", *res.Engagement.DropReason)
	assert.Equal(t, []string{}, AllowedTargets(res.Engagement, testNow))

	_, err = m.Transition(res.Engagement, TransitionRequest{Target: "interview scheduled", At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestAllowedTargets(t *testing.T) {
	e := scheduledEngagement(t)
	late := e.CurrentInterview().EndsAt.Add(time.Minute)
	assert.Equal(t, []string{"waitlist", "selected", "not qualified", "interview rescheduled", "interview concluded", "dropped"}, AllowedTargets(e, late))
	assert.Equal(t, []string{"interview rescheduled", "interview concluded", "dropped"}, AllowedTargets(e, testNow))
}

func TestUnknownTargetIsValidationError(t *testing.T) {
	_, err := newMachine().Transition(engagementAt(models.ApplicationStatusUnderReview), TransitionRequest{Target: "archived", At: testNow})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestClosedApplicationCannotBeDropped(t *testing.T) {
	m := newMachine()
	for _, status := range []models.ApplicationStatus{models.ApplicationStatusRejected, models.ApplicationStatusNotQualified} {
		t.Run(string(status), func(t *testing.T) {
			assert.True(t, Terminal(status))
			e := engagementAt(status)
			_, err := m.Transition(e, TransitionRequest{Target: "dropped", Feedback: "no longer interested", At: testNow})
			assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
			assert.NotContains(t, AllowedTargets(e, testNow), "dropped")
		})
	}

	assert.False(t, Terminal(models.ApplicationStatusSelected))
	selected := engagementAt(models.ApplicationStatusSelected)
	assert.Contains(t, AllowedTargets(selected, testNow), "dropped")
	res, err := m.Transition(selected, TransitionRequest{Target: "dropped", Feedback: "deferred to next year", At: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStatusDropped, res.Engagement.Status)
}
