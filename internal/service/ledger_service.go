package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-ledger-api/internal/dto"
	"github.com/noah-isme/admissions-ledger-api/internal/ledger"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

// LedgerServiceParams groups constructor dependencies.
type LedgerServiceParams struct {
	Engagements engagementStore
	Locker      engagementLocker
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Now         func() time.Time
	NewID       func() string
}

// LedgerService records receipts and verification decisions on the
// installments of an engagement's fee schedule.
type LedgerService struct {
	writer    *engagementWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	newID     func() string
}

// NewLedgerService constructs the service.
func NewLedgerService(params LedgerServiceParams) *LedgerService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	newID := params.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &LedgerService{
		writer: &engagementWriter{
			store:   params.Engagements,
			locker:  params.Locker,
			metrics: params.Metrics,
			logger:  logger,
			now:     now,
		},
		metrics:   params.Metrics,
		validator: v,
		logger:    logger,
		newID:     newID,
	}
}

// RecordReceipt attaches a proof of payment to a pending or flagged line.
// Students may only upload against their own engagement.
func (s *LedgerService) RecordReceipt(ctx context.Context, engagementID, installmentID string, req dto.RecordReceiptRequest, actor models.Actor) (*dto.InstallmentMutation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}
	var kind models.InstallmentKind
	next, err := s.writer.mutate(ctx, engagementID, func(current models.Engagement, now time.Time) (*models.Engagement, error) {
		if actor.IsStudent() && current.StudentID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "receipts can only be uploaded by the engagement's student")
		}
		if current.Closed() {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "engagement is dropped")
		}
		next := current.Clone()
		line, err := findLine(&next, installmentID)
		if err != nil {
			return nil, err
		}
		updated, err := ledger.RecordReceipt(*line, s.newID(), ledger.ReceiptRequest{
			FileURL:    req.FileURL,
			UploadedBy: actor.ID,
			At:         now,
		})
		if err != nil {
			return nil, err
		}
		*line = updated
		kind = updated.Kind
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReceipt(string(kind))
	line, _ := next.Schedule.Find(installmentID)
	s.logger.Info("receipt recorded",
		zap.String("engagement_id", engagementID),
		zap.String("installment_id", installmentID),
		zap.String("actor_id", actor.ID))
	return &dto.InstallmentMutation{Installment: ledger.View(*line, next.UpdatedAt), Outcome: ledger.OutcomeApplied}, nil
}

// Verify applies a fee collector's decision to the receipt awaiting review.
// Repeating a decision on a resolved line writes nothing and reports
// OutcomeAlreadyResolved.
func (s *LedgerService) Verify(ctx context.Context, engagementID, installmentID string, req dto.VerifyInstallmentRequest, actor models.Actor) (*dto.InstallmentMutation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	outcome := ledger.OutcomeApplied
	var at time.Time
	next, err := s.writer.mutate(ctx, engagementID, func(current models.Engagement, now time.Time) (*models.Engagement, error) {
		at = now
		next := current.Clone()
		line, err := findLine(&next, installmentID)
		if err != nil {
			return nil, err
		}
		result, err := ledger.Verify(*line, ledger.VerifyRequest{
			Decision: req.Decision,
			Comment:  req.Comment,
			ActorID:  actor.ID,
			At:       now,
		})
		if err != nil {
			return nil, err
		}
		outcome = result.Outcome
		if outcome == ledger.OutcomeAlreadyResolved {
			return nil, nil
		}
		*line = result.Installment
		return &next, nil
	})
	s.metrics.ObserveVerification(string(req.Decision), verificationLabel(outcome, err))
	if err != nil {
		return nil, err
	}
	line, _ := next.Schedule.Find(installmentID)
	if outcome == ledger.OutcomeAlreadyResolved {
		s.logger.Info("verification already resolved",
			zap.String("engagement_id", engagementID),
			zap.String("installment_id", installmentID))
	}
	return &dto.InstallmentMutation{Installment: ledger.View(*line, at), Outcome: outcome}, nil
}

func findLine(e *models.Engagement, installmentID string) (*models.Installment, error) {
	if e.Schedule == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "engagement has no fee schedule yet")
	}
	line, ok := e.Schedule.Find(installmentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("installment %s not found", installmentID))
	}
	return line, nil
}

func verificationLabel(outcome ledger.Outcome, err error) string {
	if err != nil {
		return errorCode(err)
	}
	return string(outcome)
}
