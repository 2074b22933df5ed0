package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

func TestCohortRepositoryFeeConfigGroupsSemesters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM cohorts WHERE id = $1")).
		WithArgs("cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "currency", "plan", "admission_fee", "admission_fee_due_date",
			"one_shot_base_fee", "one_shot_discount", "one_shot_due_date"}).
			AddRow("cohort-1", "2024 Full Stack", "INR", "installments", int64(1000000), due, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cohort_installments WHERE cohort_id = $1")).
		WithArgs("cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"semester", "sequence", "base_fee", "due_date"}).
			AddRow(1, 1, int64(5000000), due).
			AddRow(1, 2, int64(5000000), due).
			AddRow(2, 1, int64(5000000), due))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scholarship_slabs WHERE cohort_id = $1")).
		WithArgs("cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cohort_id", "name", "percentage", "clearance_threshold"}).
			AddRow("slab-merit", "cohort-1", "Merit", "20.00", 60))

	cfg, err := NewCohortRepository(db).FeeConfig(context.Background(), "cohort-1")
	require.NoError(t, err)
	assert.Equal(t, models.FeePlanInstallments, cfg.Plan)
	assert.Nil(t, cfg.OneShot)
	require.Len(t, cfg.Semesters, 2)
	assert.Len(t, cfg.Semesters[0].Installments, 2)
	assert.Len(t, cfg.Semesters[1].Installments, 1)
	require.Len(t, cfg.Slabs, 1)
	assert.True(t, cfg.Slabs[0].Percentage.Equal(money.MustPercentage("20").Decimal))
	assert.Equal(t, 60, cfg.Slabs[0].ClearanceThreshold)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortRepositorySaveFeeConfig(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	cfg := models.FeeConfig{
		CohortID: "cohort-1",
		Currency: "INR",
		Plan:     models.FeePlanOneShot,
		OneShot:  &models.OneShotConfig{BaseFee: 20000000, Discount: 500000, DueDate: fixtureTime},
		Slabs:    []models.ScholarshipSlab{{ID: "slab-merit", Name: "Merit", Percentage: money.MustPercentage("20")}},
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cohorts")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cohort_installments WHERE cohort_id = $1")).
		WithArgs("cohort-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scholarship_slabs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewCohortRepository(db).SaveFeeConfig(context.Background(), "2024 Full Stack", cfg))
	require.NoError(t, mock.ExpectationsWereMet())
}
