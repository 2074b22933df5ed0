package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-ledger-api/internal/dto"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/response"
)

type engagementService interface {
	FetchLatest(ctx context.Context, studentID string, asOf time.Time) (*dto.EngagementView, error)
	Get(ctx context.Context, id string, asOf time.Time) (*dto.EngagementView, error)
	List(ctx context.Context, filter models.EngagementFilter, asOf time.Time) ([]dto.EngagementView, *models.Pagination, error)
	Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor models.Actor) (*dto.EngagementView, error)
	RequestTransition(ctx context.Context, id string, req dto.TransitionRequest, actor models.Actor) (*dto.EngagementMutation, error)
	TransitionEvaluation(ctx context.Context, id string, req dto.EvaluationRequest, actor models.Actor) (*dto.EngagementMutation, error)
	AwardScholarship(ctx context.Context, id string, req dto.AwardScholarshipRequest, actor models.Actor) (*dto.EngagementMutation, error)
}

// EngagementHandler exposes the admissions lifecycle over HTTP.
type EngagementHandler struct {
	service engagementService
}

// NewEngagementHandler constructs the handler.
func NewEngagementHandler(service engagementService) *EngagementHandler {
	return &EngagementHandler{service: service}
}

// FetchLatest godoc
// @Summary Latest engagement of a student
// @Tags Engagements
// @Produce json
// @Param studentId path string true "Student ID"
// @Param asOf query string false "Evaluate derived state at this instant (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/engagement [get]
func (h *EngagementHandler) FetchLatest(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.FetchLatest(c.Request.Context(), c.Param("studentId"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Get godoc
// @Summary Get engagement
// @Tags Engagements
// @Produce json
// @Param id path string true "Engagement ID"
// @Param asOf query string false "Evaluate derived state at this instant"
// @Success 200 {object} response.Envelope
// @Router /engagements/{id} [get]
func (h *EngagementHandler) Get(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// List godoc
// @Summary List engagements
// @Tags Engagements
// @Produce json
// @Param cohortId query string false "Cohort ID"
// @Param studentId query string false "Student ID"
// @Param status query string false "applied, reviewing, enrolled or dropped"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (max 200)"
// @Param asOf query string false "Evaluate derived state at this instant"
// @Success 200 {object} response.Envelope
// @Router /engagements [get]
func (h *EngagementHandler) List(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := parsePositiveInt(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := parsePositiveInt(c, "pageSize", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.EngagementFilter{
		CohortID:  strings.TrimSpace(c.Query("cohortId")),
		StudentID: strings.TrimSpace(c.Query("studentId")),
		Status:    models.EngagementStatus(strings.TrimSpace(c.Query("status"))),
		Page:      page,
		PageSize:  size,
	}
	views, pagination, err := h.service.List(c.Request.Context(), filter, asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// Submit godoc
// @Summary Submit an application
// @Tags Engagements
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /engagements [post]
func (h *EngagementHandler) Submit(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.StudentID == "" && actor.IsStudent() {
		req.StudentID = actor.ID
	}
	view, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Transition godoc
// @Summary Request a status transition
// @Description Target is an application status or "enrolled"/"dropped". Feedback is required for on hold, accepted, rejected and dropped.
// @Tags Engagements
// @Accept json
// @Produce json
// @Param id path string true "Engagement ID"
// @Param payload body dto.TransitionRequest true "Transition"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /engagements/{id}/transitions [post]
func (h *EngagementHandler) Transition(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.RequestTransition(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Engagement, nil, warningsMeta(result.Warnings))
}

// Evaluation godoc
// @Summary Advance the litmus evaluation
// @Tags Engagements
// @Accept json
// @Produce json
// @Param id path string true "Engagement ID"
// @Param payload body dto.EvaluationRequest true "Evaluation"
// @Success 200 {object} response.Envelope
// @Router /engagements/{id}/evaluation [post]
func (h *EngagementHandler) Evaluation(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.TransitionEvaluation(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Engagement, nil)
}

// AwardScholarship godoc
// @Summary Award a scholarship slab
// @Description Re-resolves the fee schedule. Lines already submitted or paid keep their amounts and are listed in meta.warnings.
// @Tags Engagements
// @Accept json
// @Produce json
// @Param id path string true "Engagement ID"
// @Param payload body dto.AwardScholarshipRequest true "Award"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /engagements/{id}/scholarship [post]
func (h *EngagementHandler) AwardScholarship(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AwardScholarshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.AwardScholarship(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Engagement, nil, warningsMeta(result.Warnings))
}
