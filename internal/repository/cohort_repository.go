package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

type cohortRow struct {
	ID                  string        `db:"id"`
	Name                string        `db:"name"`
	Currency            string        `db:"currency"`
	Plan                string        `db:"plan"`
	AdmissionFee        int64         `db:"admission_fee"`
	AdmissionFeeDueDate sql.NullTime  `db:"admission_fee_due_date"`
	OneShotBaseFee      sql.NullInt64 `db:"one_shot_base_fee"`
	OneShotDiscount     sql.NullInt64 `db:"one_shot_discount"`
	OneShotDueDate      sql.NullTime  `db:"one_shot_due_date"`
}

type cohortInstallmentRow struct {
	Semester int       `db:"semester"`
	Sequence int       `db:"sequence"`
	BaseFee  int64     `db:"base_fee"`
	DueDate  time.Time `db:"due_date"`
}

// CohortRepository reads and writes cohort fee structures.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository constructs the repository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// FeeConfig loads the fee structure and scholarship slabs of a cohort.
func (r *CohortRepository) FeeConfig(ctx context.Context, cohortID string) (*models.FeeConfig, error) {
	var row cohortRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name, currency, plan, admission_fee, admission_fee_due_date,
       one_shot_base_fee, one_shot_discount, one_shot_due_date
FROM cohorts WHERE id = $1`, cohortID); err != nil {
		return nil, fmt.Errorf("get cohort: %w", err)
	}

	cfg := &models.FeeConfig{
		CohortID:            row.ID,
		Currency:            row.Currency,
		Plan:                models.FeePlan(row.Plan),
		AdmissionFee:        money.Amount(row.AdmissionFee),
		AdmissionFeeDueDate: row.AdmissionFeeDueDate.Time,
		Slabs:               []models.ScholarshipSlab{},
	}
	if row.OneShotBaseFee.Valid {
		cfg.OneShot = &models.OneShotConfig{
			BaseFee:  money.Amount(row.OneShotBaseFee.Int64),
			Discount: money.Amount(row.OneShotDiscount.Int64),
			DueDate:  row.OneShotDueDate.Time,
		}
	}

	var items []cohortInstallmentRow
	if err := r.db.SelectContext(ctx, &items, `SELECT semester, sequence, base_fee, due_date
FROM cohort_installments WHERE cohort_id = $1 ORDER BY semester ASC, sequence ASC`, cohortID); err != nil {
		return nil, fmt.Errorf("list cohort installments: %w", err)
	}
	for _, item := range items {
		n := len(cfg.Semesters)
		if n == 0 || cfg.Semesters[n-1].Number != item.Semester {
			cfg.Semesters = append(cfg.Semesters, models.SemesterConfig{Number: item.Semester})
			n++
		}
		cfg.Semesters[n-1].Installments = append(cfg.Semesters[n-1].Installments, models.InstallmentConfig{
			Sequence: item.Sequence,
			BaseFee:  money.Amount(item.BaseFee),
			DueDate:  item.DueDate,
		})
	}

	if err := r.db.SelectContext(ctx, &cfg.Slabs, `SELECT id, cohort_id, name, percentage, clearance_threshold
FROM scholarship_slabs WHERE cohort_id = $1 ORDER BY percentage ASC, id ASC`, cohortID); err != nil {
		return nil, fmt.Errorf("list scholarship slabs: %w", err)
	}
	return cfg, nil
}

// SaveFeeConfig replaces a cohort's fee structure. Slabs are upserted so
// awards that reference them keep a valid slab ID.
func (r *CohortRepository) SaveFeeConfig(ctx context.Context, name string, cfg models.FeeConfig) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cohort tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var oneShotBase, oneShotDiscount sql.NullInt64
	var oneShotDue sql.NullTime
	if cfg.OneShot != nil {
		oneShotBase = sql.NullInt64{Int64: int64(cfg.OneShot.BaseFee), Valid: true}
		oneShotDiscount = sql.NullInt64{Int64: int64(cfg.OneShot.Discount), Valid: true}
		oneShotDue = nullTime(cfg.OneShot.DueDate)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO cohorts (id, name, currency, plan, admission_fee, admission_fee_due_date,
    one_shot_base_fee, one_shot_discount, one_shot_due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, currency = EXCLUDED.currency, plan = EXCLUDED.plan,
    admission_fee = EXCLUDED.admission_fee, admission_fee_due_date = EXCLUDED.admission_fee_due_date,
    one_shot_base_fee = EXCLUDED.one_shot_base_fee, one_shot_discount = EXCLUDED.one_shot_discount,
    one_shot_due_date = EXCLUDED.one_shot_due_date`,
		cfg.CohortID, name, cfg.Currency, string(cfg.Plan), int64(cfg.AdmissionFee), nullTime(cfg.AdmissionFeeDueDate),
		oneShotBase, oneShotDiscount, oneShotDue); err != nil {
		return fmt.Errorf("upsert cohort: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cohort_installments WHERE cohort_id = $1`, cfg.CohortID); err != nil {
		return fmt.Errorf("clear cohort installments: %w", err)
	}
	for _, sem := range cfg.Semesters {
		for _, item := range sem.Installments {
			if _, err = tx.ExecContext(ctx, `INSERT INTO cohort_installments (cohort_id, semester, sequence, base_fee, due_date)
VALUES ($1, $2, $3, $4, $5)`, cfg.CohortID, sem.Number, item.Sequence, int64(item.BaseFee), item.DueDate); err != nil {
				return fmt.Errorf("insert cohort installment: %w", err)
			}
		}
	}

	for _, slab := range cfg.Slabs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO scholarship_slabs (id, cohort_id, name, percentage, clearance_threshold)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, percentage = EXCLUDED.percentage,
    clearance_threshold = EXCLUDED.clearance_threshold`,
			slab.ID, cfg.CohortID, slab.Name, slab.Percentage, slab.ClearanceThreshold); err != nil {
			return fmt.Errorf("upsert scholarship slab: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cohort tx: %w", err)
	}
	return nil
}
