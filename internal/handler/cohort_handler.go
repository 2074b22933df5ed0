package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-ledger-api/internal/dto"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/internal/service"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/response"
)

type feeConfigService interface {
	FeeConfig(ctx context.Context, cohortID string) (*models.FeeConfig, error)
	SaveFeeConfig(ctx context.Context, cohortID string, req dto.SaveFeeConfigRequest) (*models.FeeConfig, error)
	PreviewSchedule(ctx context.Context, cohortID, slabID string) (*models.FeeSchedule, error)
}

type collectionsService interface {
	Collections(ctx context.Context, cohortID string, asOf time.Time) (*models.CollectionMetrics, error)
	Export(ctx context.Context, cohortID, format string, asOf time.Time) (*service.ExportFile, error)
}

// CohortHandler exposes cohort fee structures and collection dashboards.
type CohortHandler struct {
	fees        feeConfigService
	collections collectionsService
}

// NewCohortHandler constructs the handler.
func NewCohortHandler(fees feeConfigService, collections collectionsService) *CohortHandler {
	return &CohortHandler{fees: fees, collections: collections}
}

// FeeConfig godoc
// @Summary Cohort fee configuration
// @Tags Cohorts
// @Produce json
// @Param cohortId path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{cohortId}/fee-config [get]
func (h *CohortHandler) FeeConfig(c *gin.Context) {
	cfg, err := h.fees.FeeConfig(c.Request.Context(), c.Param("cohortId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// SaveFeeConfig godoc
// @Summary Replace cohort fee configuration
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param cohortId path string true "Cohort ID"
// @Param payload body dto.SaveFeeConfigRequest true "Fee configuration"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{cohortId}/fee-config [put]
func (h *CohortHandler) SaveFeeConfig(c *gin.Context) {
	var req dto.SaveFeeConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	cfg, err := h.fees.SaveFeeConfig(c.Request.Context(), c.Param("cohortId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// PreviewSchedule godoc
// @Summary Preview a fee schedule
// @Tags Cohorts
// @Produce json
// @Param cohortId path string true "Cohort ID"
// @Param slabId query string false "Scholarship slab to apply"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{cohortId}/fee-schedule/preview [get]
func (h *CohortHandler) PreviewSchedule(c *gin.Context) {
	schedule, err := h.fees.PreviewSchedule(c.Request.Context(), c.Param("cohortId"), strings.TrimSpace(c.Query("slabId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Collections godoc
// @Summary Cohort collection metrics
// @Tags Cohorts
// @Produce json
// @Param cohortId path string true "Cohort ID"
// @Param asOf query string false "Evaluate overdue state at this instant"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{cohortId}/collections [get]
func (h *CohortHandler) Collections(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	metrics, err := h.collections.Collections(c.Request.Context(), c.Param("cohortId"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}

// Export godoc
// @Summary Export cohort collection metrics
// @Tags Cohorts
// @Produce text/csv
// @Produce application/pdf
// @Param cohortId path string true "Cohort ID"
// @Param format query string false "csv (default) or pdf"
// @Param asOf query string false "Evaluate overdue state at this instant"
// @Success 200 {file} file
// @Router /cohorts/{cohortId}/collections/export [get]
func (h *CohortHandler) Export(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.collections.Export(c.Request.Context(), c.Param("cohortId"), c.Query("format"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
