package feeschedule

import (
	"fmt"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

// WarningStaleAward marks a frozen line whose amount no longer matches the
// award now in effect. It is informational and never blocks a write.
const WarningStaleAward = "STALE_AWARD"

// Warning is a non-blocking observation produced while re-resolving.
type Warning struct {
	Code          string       `json:"code"`
	InstallmentID string       `json:"installmentId"`
	Message       string       `json:"message"`
	FrozenAmount  money.Amount `json:"frozenAmount"`
	CurrentAmount money.Amount `json:"currentAmount"`
}

type lineKey struct {
	kind     models.InstallmentKind
	semester int
	sequence int
}

func keyOf(line *models.Installment) lineKey {
	return lineKey{kind: line.Kind, semester: line.Semester, sequence: line.Sequence}
}

// Reresolve recomputes a schedule after the award or configuration changed.
// Only lines still pending are rewritten; lines that were paid, submitted for
// verification or flagged keep the amounts in effect when the student acted.
func Reresolve(existing *models.FeeSchedule, cfg models.FeeConfig, award *models.ScholarshipAward, newID IDGenerator) (*models.FeeSchedule, []Warning, error) {
	if existing == nil {
		schedule, err := Resolve(cfg, award, newID)
		return schedule, nil, err
	}

	current := make(map[lineKey]*models.Installment)
	for _, line := range existing.Lines() {
		current[keyOf(line)] = line
	}

	placeholder := 0
	fresh, err := Resolve(cfg, award, func() string {
		placeholder++
		return fmt.Sprintf("pending-%d", placeholder)
	})
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	seen := make(map[lineKey]struct{})
	merge := func(line models.Installment) models.Installment {
		key := keyOf(&line)
		seen[key] = struct{}{}
		prev, ok := current[key]
		if !ok {
			line.ID = newID()
			return line
		}
		if rewritable(prev) {
			line.ID = prev.ID
			line.EngagementID = prev.EngagementID
			line.Receipts = prev.Receipts
			return line
		}
		kept := *prev
		if kept.AmountPayable != line.AmountPayable {
			warnings = append(warnings, Warning{
				Code:          WarningStaleAward,
				InstallmentID: kept.ID,
				Message:       fmt.Sprintf("%s line %d.%d keeps the amount in effect at submission", kept.Kind, kept.Semester, kept.Sequence),
				FrozenAmount:  kept.AmountPayable,
				CurrentAmount: line.AmountPayable,
			})
		}
		return kept
	}

	result := &models.FeeSchedule{Plan: fresh.Plan, Currency: fresh.Currency}
	if fresh.AdmissionFee != nil {
		merged := merge(*fresh.AdmissionFee)
		result.AdmissionFee = &merged
	}
	for _, line := range fresh.Installments {
		result.Installments = append(result.Installments, merge(line))
	}

	// Lines that left the configuration survive only when a student already
	// acted on them.
	for _, line := range existing.Lines() {
		if _, ok := seen[keyOf(line)]; ok || rewritable(line) {
			continue
		}
		kept := *line
		if kept.Kind == models.InstallmentKindAdmission && result.AdmissionFee == nil {
			result.AdmissionFee = &kept
			continue
		}
		result.Installments = append(result.Installments, kept)
	}
	return result, warnings, nil
}

func rewritable(line *models.Installment) bool {
	return line.FrozenAt == nil && line.VerificationStatus() == models.VerificationPending
}
