package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

var (
	due = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
)

func pendingLine() models.Installment {
	return models.Installment{
		ID:            "inst-1",
		EngagementID:  "eng-1",
		Kind:          models.InstallmentKindInstallment,
		Semester:      1,
		Sequence:      1,
		DueDate:       due,
		BaseFee:       5000000,
		AmountPayable: 5000000,
		Receipts:      []models.Receipt{},
	}
}

func submitted(t *testing.T) models.Installment {
	t.Helper()
	line, err := RecordReceipt(pendingLine(), "rcpt-1", ReceiptRequest{FileURL: "https://files/rcpt-1.pdf", UploadedBy: "student-1", At: now})
	require.NoError(t, err)
	return line
}

func TestRecordReceiptMovesToVerificationPending(t *testing.T) {
	original := pendingLine()
	line, err := RecordReceipt(original, "rcpt-1", ReceiptRequest{FileURL: " https://files/rcpt-1.pdf ", UploadedBy: "student-1", At: now})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationAwaitingReview, line.VerificationStatus())
	require.Len(t, line.Receipts, 1)
	assert.Equal(t, "https://files/rcpt-1.pdf", line.Receipts[0].FileURL)
	assert.Equal(t, "inst-1", line.Receipts[0].InstallmentID)
	assert.Empty(t, original.Receipts)

	_, err = RecordReceipt(line, "rcpt-2", ReceiptRequest{FileURL: "https://files/rcpt-2.pdf", At: now})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = RecordReceipt(pendingLine(), "rcpt-3", ReceiptRequest{At: now})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestFlaggingRequiresReasonAndAllowsResubmission(t *testing.T) {
	line := submitted(t)

	_, err := Verify(line, VerifyRequest{Decision: models.DecisionFlagged, ActorID: "collector-1", At: now})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMissingReason))

	res, err := Verify(line, VerifyRequest{Decision: models.DecisionFlagged, Comment: "receipt illegible", ActorID: "collector-1", At: now})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.VerificationFlagged, res.Installment.VerificationStatus())
	require.Len(t, res.Installment.Receipts, 1)
	assert.Equal(t, "receipt illegible", res.Installment.Receipts[0].Comment)
	assert.Nil(t, res.Installment.FrozenAt)

	again, err := RecordReceipt(res.Installment, "rcpt-2", ReceiptRequest{FileURL: "https://files/rcpt-2.pdf", At: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationAwaitingReview, again.VerificationStatus())
	assert.Len(t, again.Receipts, 2)
}

func TestVerifyPaidIsIdempotent(t *testing.T) {
	line := submitted(t)
	first, err := Verify(line, VerifyRequest{Decision: models.DecisionPaid, ActorID: "collector-1", At: now})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	require.NotNil(t, first.Installment.FrozenAt)
	assert.Equal(t, models.VerificationPaid, first.Installment.VerificationStatus())

	second, err := Verify(first.Installment, VerifyRequest{Decision: models.DecisionPaid, ActorID: "collector-2", At: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, second.Outcome)
	assert.Equal(t, first.Installment, second.Installment)
	assert.Len(t, second.Installment.Receipts, 1)

	_, err = RecordReceipt(first.Installment, "rcpt-9", ReceiptRequest{FileURL: "https://files/x.pdf", At: now})
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyPaid))
}

func TestVerifyRejectsPendingLinesAndUnknownDecisions(t *testing.T) {
	_, err := Verify(pendingLine(), VerifyRequest{Decision: models.DecisionPaid, At: now})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = Verify(submitted(t), VerifyRequest{Decision: "waived", At: now})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestIsOverdue(t *testing.T) {
	after := due.Add(time.Second)

	assert.False(t, IsOverdue(pendingLine(), now))
	assert.False(t, IsOverdue(pendingLine(), due), "due date itself is not overdue")
	assert.True(t, IsOverdue(pendingLine(), after))

	line := submitted(t)
	assert.True(t, IsOverdue(line, after))

	paid, err := Verify(line, VerifyRequest{Decision: models.DecisionPaid, At: after})
	require.NoError(t, err)
	assert.False(t, IsOverdue(paid.Installment, after))

	flagged, err := Verify(line, VerifyRequest{Decision: models.DecisionFlagged, Comment: "wrong amount", At: after})
	require.NoError(t, err)
	assert.False(t, IsOverdue(flagged.Installment, after))

	undated := pendingLine()
	undated.DueDate = time.Time{}
	assert.False(t, IsOverdue(undated, after))
}

func TestSummarize(t *testing.T) {
	admission := pendingLine()
	admission.ID = "adm-1"
	admission.Kind = models.InstallmentKindAdmission
	admission.Semester, admission.Sequence = 0, 0
	admission.AmountPayable = 1000000
	admission.DueDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	schedule := &models.FeeSchedule{Plan: models.FeePlanInstallments, AdmissionFee: &admission}
	for i := 1; i <= 2; i++ {
		line := pendingLine()
		line.ID = "inst-" + string(rune('0'+i))
		line.Sequence = i
		schedule.Installments = append(schedule.Installments, line)
	}

	s := Summarize(schedule, now)
	assert.Equal(t, PaymentStatusOverdue, s.Status)
	require.NotNil(t, s.NextDue)
	assert.Equal(t, "adm-1", s.NextDue.ID)
	assert.Equal(t, money.Amount(11000000), s.TotalExpected)
	assert.Equal(t, money.Amount(11000000), s.Outstanding)
	assert.Equal(t, 1, s.Overdue)
	assert.Len(t, s.Lines, 3)

	decided := now
	paidReceipt := []models.Receipt{{ID: "r", Decision: models.DecisionPaid, DecidedAt: &decided}}
	schedule.AdmissionFee.Receipts = paidReceipt
	s = Summarize(schedule, now)
	assert.Equal(t, PaymentStatusOutstanding, s.Status)
	assert.Equal(t, "inst-1", s.NextDue.ID)
	assert.Equal(t, money.Amount(1000000), s.TotalPaid)

	for i := range schedule.Installments {
		schedule.Installments[i].Receipts = paidReceipt
	}
	s = Summarize(schedule, now)
	assert.Equal(t, PaymentStatusComplete, s.Status)
	assert.Nil(t, s.NextDue)
	assert.Equal(t, money.Amount(0), s.Outstanding)

	empty := Summarize(nil, now)
	assert.Equal(t, PaymentStatusUnscheduled, empty.Status)
	assert.Empty(t, empty.Lines)
}
