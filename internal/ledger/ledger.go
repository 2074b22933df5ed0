// Package ledger is the verification sub-machine shared by admission fees and
// installments: pending → verification pending → paid | flagged, with flagged
// lines accepting a new receipt. Status is always derived from the latest
// receipt; overdue is computed against the caller's clock and never stored.
package ledger

import (
	"strings"
	"time"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

// Outcome tells the caller whether a verification changed anything.
type Outcome string

// Verification outcomes.
const (
	OutcomeApplied         Outcome = "applied"
	OutcomeAlreadyResolved Outcome = "already_resolved"
)

// ReceiptRequest describes an uploaded proof of payment.
type ReceiptRequest struct {
	FileURL    string
	UploadedBy string
	At         time.Time
}

// RecordReceipt appends a receipt to a pending or flagged line, moving it to
// verification pending.
func RecordReceipt(line models.Installment, receiptID string, req ReceiptRequest) (models.Installment, error) {
	switch line.VerificationStatus() {
	case models.VerificationPaid:
		return models.Installment{}, appErrors.ErrAlreadyPaid
	case models.VerificationAwaitingReview:
		return models.Installment{}, appErrors.Clone(appErrors.ErrInvalidTransition, "a receipt is already awaiting verification")
	}
	url := strings.TrimSpace(req.FileURL)
	if url == "" {
		return models.Installment{}, appErrors.Clone(appErrors.ErrValidation, "receipt file url is required")
	}

	next := copyLine(line)
	next.Receipts = append(next.Receipts, models.Receipt{
		ID:            receiptID,
		InstallmentID: line.ID,
		FileURL:       url,
		UploadedAt:    req.At.UTC(),
		UploadedBy:    req.UploadedBy,
	})
	return next, nil
}

// VerifyRequest is a fee collector's decision on the latest receipt.
type VerifyRequest struct {
	Decision models.ReceiptDecision
	Comment  string
	ActorID  string
	At       time.Time
}

// Verification is the line after a decision and whether it was applied.
type Verification struct {
	Installment models.Installment
	Outcome     Outcome
}

// Verify resolves the receipt awaiting review. A line already resolved is
// returned unchanged with OutcomeAlreadyResolved so repeated submissions never
// add history. Paying a line freezes its amount.
func Verify(line models.Installment, req VerifyRequest) (Verification, error) {
	if req.Decision != models.DecisionPaid && req.Decision != models.DecisionFlagged {
		return Verification{}, appErrors.Clone(appErrors.ErrValidation, "decision must be paid or flagged")
	}
	switch line.VerificationStatus() {
	case models.VerificationPaid, models.VerificationFlagged:
		return Verification{Installment: copyLine(line), Outcome: OutcomeAlreadyResolved}, nil
	case models.VerificationPending:
		return Verification{}, appErrors.Clone(appErrors.ErrInvalidTransition, "no receipt is awaiting verification")
	}
	comment := strings.TrimSpace(req.Comment)
	if req.Decision == models.DecisionFlagged && comment == "" {
		return Verification{}, appErrors.ErrMissingReason
	}

	at := req.At.UTC()
	next := copyLine(line)
	latest := next.LatestReceipt()
	latest.Decision = req.Decision
	latest.Comment = comment
	latest.DecidedAt = &at
	latest.DecidedBy = req.ActorID
	if req.Decision == models.DecisionPaid {
		next.FrozenAt = &at
	}
	return Verification{Installment: next, Outcome: OutcomeApplied}, nil
}

// IsOverdue reports whether the line is past due while still unpaid and not
// flagged.
func IsOverdue(line models.Installment, now time.Time) bool {
	if line.DueDate.IsZero() || !line.DueDate.Before(now) {
		return false
	}
	switch line.VerificationStatus() {
	case models.VerificationPending, models.VerificationAwaitingReview:
		return true
	default:
		return false
	}
}

func copyLine(line models.Installment) models.Installment {
	line.Receipts = append([]models.Receipt(nil), line.Receipts...)
	return line
}
