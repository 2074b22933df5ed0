package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admissions-ledger-api/internal/aggregate"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/export"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

type cohortEngagementLister interface {
	ListByCohort(ctx context.Context, cohortID string) ([]models.Engagement, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	Currency string
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Engagements cohortEngagementLister
	CSV         csvRenderer
	PDF         pdfRenderer
	Logger      *zap.Logger
	Config      DashboardServiceConfig
	Now         func() time.Time
}

// DashboardService computes collection metrics for a cohort. Nothing is
// cached: every read folds the current snapshots at the requested instant.
type DashboardService struct {
	engagements cohortEngagementLister
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	cfg         DashboardServiceConfig
	now         func() time.Time
}

// ExportFile is a rendered report ready to download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		engagements: params.Engagements,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		cfg:         cfg,
		now:         now,
	}
}

// Collections aggregates every engagement of the cohort as of asOf.
func (s *DashboardService) Collections(ctx context.Context, cohortID string, asOf time.Time) (*models.CollectionMetrics, error) {
	if strings.TrimSpace(cohortID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cohortId is required")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	engagements, err := s.engagements.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, storeError(err, "cohort not found")
	}
	started := time.Now()
	metrics := aggregate.Aggregate(engagements, asOf.UTC())
	s.logger.Debug("collections aggregated",
		zap.String("cohort_id", cohortID),
		zap.Int("engagements", len(engagements)),
		zap.Duration("took", time.Since(started)))
	return &metrics, nil
}

// Export renders the cohort's collection metrics as CSV or PDF.
func (s *DashboardService) Export(ctx context.Context, cohortID, format string, asOf time.Time) (*ExportFile, error) {
	f, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	metrics, err := s.Collections(ctx, cohortID, asOf)
	if err != nil {
		return nil, err
	}
	data := s.dataset(cohortID, metrics)

	var payload []byte
	if f == export.FormatPDF {
		payload, err = s.pdf.Render(data)
	} else {
		payload, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("collections-%s-%s.%s", cohortID, metrics.AsOf.Format("20060102"), f),
		ContentType: f.ContentType(),
		Data:        payload,
	}, nil
}

func (s *DashboardService) dataset(cohortID string, m *models.CollectionMetrics) export.Dataset {
	amount := func(a money.Amount) string { return money.Format(a, s.cfg.Currency) }
	data := export.Dataset{
		Title: fmt.Sprintf("Collections for cohort %s as of %s", cohortID, m.AsOf.Format(time.RFC3339)),
		Summary: [][2]string{
			{"Engagements", strconv.Itoa(m.Engagements)},
			{"Total expected", amount(m.TotalExpected)},
			{"Total received", amount(m.TotalReceived)},
			{"Outstanding", amount(m.Outstanding)},
			{"Pending verifications", strconv.Itoa(m.PendingVerifications)},
			{"Overdue installments", strconv.Itoa(m.OverdueInstallments)},
			{"Total scholarship", amount(m.TotalScholarship)},
			{"Average scholarship %", m.AverageScholarshipPercentage.StringFixed(2)},
		},
		Headers: []string{"Line", "Lines", "Paid", "Expected", "Received"},
		Rows:    make([][]string, 0, len(m.Breakdown)),
	}
	for _, b := range m.Breakdown {
		data.Rows = append(data.Rows, []string{
			breakdownLabel(b),
			strconv.Itoa(b.Count),
			strconv.Itoa(b.Paid),
			amount(b.Total),
			amount(b.Received),
		})
	}
	return data
}

func breakdownLabel(b models.InstallmentBreakdown) string {
	switch b.Kind {
	case models.InstallmentKindAdmission:
		return "Admission fee"
	case models.InstallmentKindOneShot:
		return "One-shot payment"
	default:
		return fmt.Sprintf("Semester %d installment %d", b.Semester, b.Sequence)
	}
}
