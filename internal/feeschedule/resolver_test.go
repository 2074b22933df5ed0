package feeschedule

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

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func meritSlab() models.ScholarshipSlab {
	return models.ScholarshipSlab{ID: "slab-merit", Name: "Merit", Percentage: money.MustPercentage("20")}
}

func oneShotConfig() models.FeeConfig {
	return models.FeeConfig{
		CohortID:            "cohort-1",
		Currency:            "INR",
		Plan:                models.FeePlanOneShot,
		AdmissionFee:        1000000,
		AdmissionFeeDueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		OneShot:             &models.OneShotConfig{BaseFee: 20000000, DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		Slabs:               []models.ScholarshipSlab{meritSlab()},
	}
}

func installmentConfig(base money.Amount) models.FeeConfig {
	due := func(m time.Month) time.Time { return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC) }
	return models.FeeConfig{
		CohortID: "cohort-2",
		Currency: "INR",
		Plan:     models.FeePlanInstallments,
		Semesters: []models.SemesterConfig{
			{Number: 2, Installments: []models.InstallmentConfig{{Sequence: 2, BaseFee: base, DueDate: due(9)}, {Sequence: 1, BaseFee: base, DueDate: due(7)}}},
			{Number: 1, Installments: []models.InstallmentConfig{{Sequence: 1, BaseFee: base, DueDate: due(1)}, {Sequence: 2, BaseFee: base, DueDate: due(3)}}},
		},
		Slabs: []models.ScholarshipSlab{meritSlab(), {ID: "slab-half", Name: "Half", Percentage: money.MustPercentage("12.5")}},
	}
}

func TestResolveOneShotWithMeritAward(t *testing.T) {
	cfg := oneShotConfig()
	award := models.AwardFromSlab(meritSlab(), "evaluator-1", time.Now())

	schedule, err := Resolve(cfg, &award, sequentialIDs("line"))
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 1)

	line := schedule.Installments[0]
	assert.Equal(t, models.InstallmentKindOneShot, line.Kind)
	assert.Equal(t, money.Amount(4000000), line.ScholarshipAmount)
	assert.Equal(t, money.Amount(16000000), line.AmountPayable)
	require.NotNil(t, schedule.AdmissionFee)
	assert.Equal(t, money.Amount(1000000), schedule.AdmissionFee.AmountPayable)
	assert.Equal(t, money.Amount(17000000), schedule.TotalExpected())
}

func TestResolveOneShotAppliesDiscountAfterScholarship(t *testing.T) {
	cfg := oneShotConfig()
	cfg.OneShot.Discount = 500000
	award := models.AwardFromSlab(meritSlab(), "evaluator-1", time.Now())

	schedule, err := Resolve(cfg, &award, sequentialIDs("line"))
	require.NoError(t, err)
	line := schedule.Installments[0]
	assert.Equal(t, money.Amount(500000), line.Discount)
	assert.Equal(t, line.BaseFee-line.ScholarshipAmount-line.Discount, line.AmountPayable)
	assert.Equal(t, money.Amount(15500000), line.AmountPayable)
}

func TestResolveInstallmentsWithoutScholarship(t *testing.T) {
	schedule, err := Resolve(installmentConfig(5000000), nil, sequentialIDs("line"))
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 4)
	assert.Nil(t, schedule.AdmissionFee)

	order := make([]string, 0, 4)
	for _, line := range schedule.Installments {
		order = append(order, fmt.Sprintf("%d.%d", line.Semester, line.Sequence))
		assert.Equal(t, money.Amount(0), line.ScholarshipAmount)
	}
	assert.Equal(t, []string{"1.1", "1.2", "2.1", "2.2"}, order)
	assert.Equal(t, money.Amount(20000000), schedule.TotalExpected())
}

func TestResolveInvariantsHoldForEveryLine(t *testing.T) {
	for _, slab := range installmentConfig(0).Slabs {
		for _, base := range []money.Amount{1, 333, 4999999, 5000001} {
			cfg := installmentConfig(base)
			cfg.AdmissionFee = 250000
			award := models.AwardFromSlab(slab, "evaluator-1", time.Now())
			schedule, err := Resolve(cfg, &award, sequentialIDs("line"))
			require.NoError(t, err)

			var sum money.Amount
			for _, line := range schedule.Installments {
				assert.Equal(t, line.BaseFee-line.ScholarshipAmount, line.AmountPayable)
				assert.Equal(t, slab.Percentage.Of(line.BaseFee), line.ScholarshipAmount)
				sum += line.AmountPayable
			}
			assert.Equal(t, cfg.AdmissionFee+sum, schedule.TotalExpected())
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	cfg := installmentConfig(5000000)
	award := models.AwardFromSlab(cfg.Slabs[1], "evaluator-1", time.Now())
	first, err := Resolve(cfg, &award, sequentialIDs("line"))
	require.NoError(t, err)
	second, err := Resolve(cfg, &award, sequentialIDs("line"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := map[string]func(*models.FeeConfig){
		"unknown plan":       func(c *models.FeeConfig) { c.Plan = "monthly" },
		"missing semesters":  func(c *models.FeeConfig) { c.Semesters = nil },
		"negative admission": func(c *models.FeeConfig) { c.AdmissionFee = -1 },
		"duplicate sequence": func(c *models.FeeConfig) {
			c.Semesters[0].Installments[1].Sequence = c.Semesters[0].Installments[0].Sequence
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := installmentConfig(100)
			mutate(&cfg)
			_, err := Resolve(cfg, nil, sequentialIDs("line"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}

	cfg := oneShotConfig()
	cfg.OneShot.Discount = cfg.OneShot.BaseFee + 1
	assert.Error(t, Validate(cfg))
}
