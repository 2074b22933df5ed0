package ledger

import (
	"time"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

// PaymentStatus is the roll-up of every line in a schedule.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusUnscheduled PaymentStatus = "unscheduled"
	PaymentStatusOutstanding PaymentStatus = "outstanding"
	PaymentStatusOverdue     PaymentStatus = "overdue"
	PaymentStatusComplete    PaymentStatus = "complete"
)

// LineView is an installment with its derived state at a given instant.
type LineView struct {
	models.Installment
	Status  models.VerificationStatus `json:"status"`
	Overdue bool                      `json:"overdue"`
}

// Summary is the derived payment view of one schedule.
type Summary struct {
	AsOf          time.Time     `json:"asOf"`
	Status        PaymentStatus `json:"status"`
	NextDue       *LineView     `json:"nextDue,omitempty"`
	TotalExpected money.Amount  `json:"totalExpected"`
	TotalPaid     money.Amount  `json:"totalPaid"`
	Outstanding   money.Amount  `json:"outstanding"`
	Overdue       int           `json:"overdue"`
	Lines         []LineView    `json:"lines"`
}

// View derives the state of a single line at now.
func View(line models.Installment, now time.Time) LineView {
	return LineView{
		Installment: line,
		Status:      line.VerificationStatus(),
		Overdue:     IsOverdue(line, now),
	}
}

// Summarize folds a schedule into its payment view. The admission fee comes
// first, so an unpaid admission fee is always the next line due.
func Summarize(schedule *models.FeeSchedule, now time.Time) Summary {
	summary := Summary{AsOf: now.UTC(), Status: PaymentStatusUnscheduled, Lines: []LineView{}}
	lines := schedule.Lines()
	if len(lines) == 0 {
		return summary
	}

	complete := true
	for _, line := range lines {
		view := View(*line, now)
		summary.Lines = append(summary.Lines, view)
		summary.TotalExpected += line.AmountPayable
		if view.Status == models.VerificationPaid {
			summary.TotalPaid += line.AmountPayable
			continue
		}
		complete = false
		if view.Overdue {
			summary.Overdue++
		}
		if summary.NextDue == nil {
			next := view
			summary.NextDue = &next
		}
	}
	summary.Outstanding = summary.TotalExpected - summary.TotalPaid

	switch {
	case complete:
		summary.Status = PaymentStatusComplete
	case summary.Overdue > 0:
		summary.Status = PaymentStatusOverdue
	default:
		summary.Status = PaymentStatusOutstanding
	}
	return summary
}
