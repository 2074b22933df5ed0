package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-ledger-api/internal/dto"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/response"
)

type ledgerService interface {
	RecordReceipt(ctx context.Context, engagementID, installmentID string, req dto.RecordReceiptRequest, actor models.Actor) (*dto.InstallmentMutation, error)
	Verify(ctx context.Context, engagementID, installmentID string, req dto.VerifyInstallmentRequest, actor models.Actor) (*dto.InstallmentMutation, error)
}

// LedgerHandler exposes receipt uploads and verification.
type LedgerHandler struct {
	service ledgerService
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(service ledgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RecordReceipt godoc
// @Summary Upload a payment receipt
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Engagement ID"
// @Param installmentId path string true "Installment ID"
// @Param payload body dto.RecordReceiptRequest true "Receipt"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /engagements/{id}/installments/{installmentId}/receipts [post]
func (h *LedgerHandler) RecordReceipt(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RecordReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.RecordReceipt(c.Request.Context(), c.Param("id"), c.Param("installmentId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result.Installment)
}

// Verify godoc
// @Summary Verify the latest receipt of an installment
// @Description A repeated decision on a resolved installment changes nothing and sets meta.already_resolved.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Engagement ID"
// @Param installmentId path string true "Installment ID"
// @Param payload body dto.VerifyInstallmentRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /engagements/{id}/installments/{installmentId}/verification [post]
func (h *LedgerHandler) Verify(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.VerifyInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.Verify(c.Request.Context(), c.Param("id"), c.Param("installmentId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Installment, nil, outcomeMeta(result.Outcome))
}
