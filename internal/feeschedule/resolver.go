// Package feeschedule materialises a cohort's fee configuration and a
// scholarship award into a payment schedule.
//
// Resolution is deterministic: the same configuration, award and ID generator
// always yield the same schedule. Wall-clock time only enters through the due
// dates carried by the configuration.
package feeschedule

import (
	"fmt"
	"sort"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

// IDGenerator returns identifiers for newly created schedule lines.
type IDGenerator func() string

// Resolve builds a fresh schedule for the configuration and optional award.
func Resolve(cfg models.FeeConfig, award *models.ScholarshipAward, newID IDGenerator) (*models.FeeSchedule, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if newID == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "fee schedule id generator missing")
	}
	pct := awardPercentage(award)

	schedule := &models.FeeSchedule{Plan: cfg.Plan, Currency: cfg.Currency}
	if cfg.AdmissionFee > 0 {
		schedule.AdmissionFee = &models.Installment{
			ID:                    newID(),
			Kind:                  models.InstallmentKindAdmission,
			DueDate:               cfg.AdmissionFeeDueDate,
			BaseFee:               cfg.AdmissionFee,
			ScholarshipPercentage: money.PercentageFromInt(0),
			AmountPayable:         cfg.AdmissionFee,
			Receipts:              []models.Receipt{},
		}
	}

	switch cfg.Plan {
	case models.FeePlanOneShot:
		schedule.Installments = []models.Installment{oneShotLine(*cfg.OneShot, pct, newID())}
	case models.FeePlanInstallments:
		semesters := append([]models.SemesterConfig(nil), cfg.Semesters...)
		sort.SliceStable(semesters, func(i, j int) bool { return semesters[i].Number < semesters[j].Number })
		for _, sem := range semesters {
			items := append([]models.InstallmentConfig(nil), sem.Installments...)
			sort.SliceStable(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })
			for _, item := range items {
				schedule.Installments = append(schedule.Installments, installmentLine(sem.Number, item, pct, newID()))
			}
		}
	}
	return schedule, nil
}

func oneShotLine(cfg models.OneShotConfig, pct money.Percentage, id string) models.Installment {
	scholarship := pct.Of(cfg.BaseFee)
	discount := cfg.Discount
	if remaining := cfg.BaseFee - scholarship; discount > remaining {
		discount = remaining
	}
	return models.Installment{
		ID:                    id,
		Kind:                  models.InstallmentKindOneShot,
		Semester:              1,
		Sequence:              1,
		DueDate:               cfg.DueDate,
		BaseFee:               cfg.BaseFee,
		ScholarshipPercentage: pct,
		ScholarshipAmount:     scholarship,
		Discount:              discount,
		AmountPayable:         cfg.BaseFee - scholarship - discount,
		Receipts:              []models.Receipt{},
	}
}

func installmentLine(semester int, cfg models.InstallmentConfig, pct money.Percentage, id string) models.Installment {
	scholarship := pct.Of(cfg.BaseFee)
	return models.Installment{
		ID:                    id,
		Kind:                  models.InstallmentKindInstallment,
		Semester:              semester,
		Sequence:              cfg.Sequence,
		DueDate:               cfg.DueDate,
		BaseFee:               cfg.BaseFee,
		ScholarshipPercentage: pct,
		ScholarshipAmount:     scholarship,
		AmountPayable:         cfg.BaseFee - scholarship,
		Receipts:              []models.Receipt{},
	}
}

func awardPercentage(award *models.ScholarshipAward) money.Percentage {
	if award == nil {
		return money.PercentageFromInt(0)
	}
	return award.Percentage
}

// Validate rejects fee configurations the resolver cannot materialise.
func Validate(cfg models.FeeConfig) error {
	invalid := func(format string, args ...interface{}) error {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(format, args...))
	}
	if cfg.AdmissionFee < 0 {
		return invalid("admission fee must not be negative")
	}
	for _, slab := range cfg.Slabs {
		if err := slab.Percentage.Validate(); err != nil {
			return invalid("slab %s: %v", slab.Name, err)
		}
	}
	switch cfg.Plan {
	case models.FeePlanOneShot:
		if cfg.OneShot == nil {
			return invalid("one-shot plan requires a one-shot configuration")
		}
		if cfg.OneShot.BaseFee < 0 || cfg.OneShot.Discount < 0 {
			return invalid("one-shot amounts must not be negative")
		}
		if cfg.OneShot.Discount > cfg.OneShot.BaseFee {
			return invalid("one-shot discount exceeds base fee")
		}
	case models.FeePlanInstallments:
		if len(cfg.Semesters) == 0 {
			return invalid("installment plan requires at least one semester")
		}
		semesters := make(map[int]struct{}, len(cfg.Semesters))
		for _, sem := range cfg.Semesters {
			if sem.Number < 1 {
				return invalid("semester numbers start at 1")
			}
			if _, dup := semesters[sem.Number]; dup {
				return invalid("semester %d configured twice", sem.Number)
			}
			semesters[sem.Number] = struct{}{}
			if len(sem.Installments) == 0 {
				return invalid("semester %d has no installments", sem.Number)
			}
			seqs := make(map[int]struct{}, len(sem.Installments))
			for _, item := range sem.Installments {
				if item.BaseFee < 0 {
					return invalid("semester %d installment %d has a negative base fee", sem.Number, item.Sequence)
				}
				if _, dup := seqs[item.Sequence]; dup {
					return invalid("semester %d installment %d configured twice", sem.Number, item.Sequence)
				}
				seqs[item.Sequence] = struct{}{}
			}
		}
	default:
		return invalid("unknown fee plan %q", cfg.Plan)
	}
	return nil
}
