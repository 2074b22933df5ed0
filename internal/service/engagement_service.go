package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-ledger-api/internal/dto"
	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/lifecycle"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

type feeConfigStore interface {
	FeeConfig(ctx context.Context, cohortID string) (*models.FeeConfig, error)
	SaveFeeConfig(ctx context.Context, name string, cfg models.FeeConfig) error
}

// EngagementServiceConfig tunes engagement behaviour.
type EngagementServiceConfig struct {
	// DefaultTimezone applies to interview requests that omit one.
	DefaultTimezone string
}

// EngagementServiceParams groups constructor dependencies.
type EngagementServiceParams struct {
	Engagements engagementStore
	Cohorts     feeConfigStore
	Locker      engagementLocker
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      EngagementServiceConfig
	Now         func() time.Time
	NewID       func() string
}

// EngagementService drives the admissions lifecycle of engagements.
type EngagementService struct {
	writer    *engagementWriter
	cohorts   feeConfigStore
	machine   *lifecycle.Machine
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EngagementServiceConfig
	newID     func() string
}

// NewEngagementService constructs the service with sane defaults.
func NewEngagementService(params EngagementServiceParams) *EngagementService {
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
	cfg := params.Config
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	return &EngagementService{
		writer: &engagementWriter{
			store:   params.Engagements,
			locker:  params.Locker,
			metrics: params.Metrics,
			logger:  logger,
			now:     now,
		},
		cohorts:   params.Cohorts,
		machine:   lifecycle.New(newID),
		metrics:   params.Metrics,
		validator: v,
		logger:    logger,
		cfg:       cfg,
		newID:     newID,
	}
}

// FetchLatest returns the authoritative engagement of a student as of asOf.
func (s *EngagementService) FetchLatest(ctx context.Context, studentID string, asOf time.Time) (*dto.EngagementView, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	history, err := s.writer.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found")
	}
	latest, ok := models.LatestEngagement(history)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no engagement")
	}
	view := viewOf(*latest, s.asOf(asOf))
	return &view, nil
}

// Get returns one engagement by ID.
func (s *EngagementService) Get(ctx context.Context, id string, asOf time.Time) (*dto.EngagementView, error) {
	e, err := s.writer.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "engagement not found")
	}
	view := viewOf(*e, s.asOf(asOf))
	return &view, nil
}

// List returns a page of engagements matching filter.
func (s *EngagementService) List(ctx context.Context, filter models.EngagementFilter, asOf time.Time) ([]dto.EngagementView, *models.Pagination, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.EngagementStatusApplied, models.EngagementStatusReviewing, models.EngagementStatusEnrolled, models.EngagementStatusDropped:
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown engagement status %q", filter.Status))
		}
	}
	list, total, err := s.writer.store.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "")
	}
	at := s.asOf(asOf)
	views := make([]dto.EngagementView, 0, len(list))
	for _, e := range list {
		views = append(views, viewOf(e, at))
	}
	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// FeeConfig returns a cohort's fee structure.
func (s *EngagementService) FeeConfig(ctx context.Context, cohortID string) (*models.FeeConfig, error) {
	cfg, err := s.cohorts.FeeConfig(ctx, cohortID)
	if err != nil {
		return nil, storeError(err, "cohort not found")
	}
	return cfg, nil
}

// SaveFeeConfig validates and stores a cohort's fee structure. Existing
// schedules are not touched until their next re-resolve.
func (s *EngagementService) SaveFeeConfig(ctx context.Context, cohortID string, req dto.SaveFeeConfigRequest) (*models.FeeConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee config payload")
	}
	cfg := req.FeeConfig
	cfg.CohortID = cohortID
	for i := range cfg.Slabs {
		if cfg.Slabs[i].ID == "" {
			cfg.Slabs[i].ID = s.newID()
		}
		cfg.Slabs[i].CohortID = cohortID
	}
	if err := feeschedule.Validate(cfg); err != nil {
		return nil, err
	}
	if err := s.cohorts.SaveFeeConfig(ctx, strings.TrimSpace(req.Name), cfg); err != nil {
		return nil, storeError(err, "")
	}
	s.logger.Info("fee config saved", zap.String("cohort_id", cohortID), zap.String("plan", string(cfg.Plan)))
	return &cfg, nil
}

// PreviewSchedule resolves the schedule a student of the cohort would get
// with the given slab, without persisting anything.
func (s *EngagementService) PreviewSchedule(ctx context.Context, cohortID, slabID string) (*models.FeeSchedule, error) {
	cfg, err := s.FeeConfig(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	var award *models.ScholarshipAward
	if slabID != "" {
		slab, ok := cfg.Slab(slabID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slab %q is not configured for cohort %s", slabID, cohortID))
		}
		snapshot := models.AwardFromSlab(slab, "", time.Time{})
		award = &snapshot
	}
	return feeschedule.Resolve(*cfg, award, s.newID)
}

// Submit opens an engagement in the initiated state. A student holds at most
// one open engagement per cohort.
func (s *EngagementService) Submit(ctx context.Context, req dto.SubmitApplicationRequest, actor models.Actor) (*dto.EngagementView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if actor.IsStudent() && actor.ID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only apply for themselves")
	}
	if _, err := s.FeeConfig(ctx, req.CohortID); err != nil {
		return nil, err
	}
	now := s.writer.now().UTC()
	tasks := append([]models.TaskSubmission{}, req.TaskSubmissions...)
	for i := range tasks {
		if tasks[i].SubmittedAt.IsZero() {
			tasks[i].SubmittedAt = now
		}
	}
	e := models.Engagement{
		ID:        s.newID(),
		StudentID: req.StudentID,
		CohortID:  req.CohortID,
		Status:    models.EngagementStatusApplied,
		Application: models.Application{
			Status:          models.ApplicationStatusInitiated,
			RevisionCount:   1,
			TaskSubmissions: tasks,
			Feedback:        []models.FeedbackEntry{},
		},
		Interviews: []models.InterviewSession{},
		Evaluation: models.Evaluation{Status: models.EvaluationStatusPending, Rubric: []models.RubricScore{}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.writer.locked(ctx, admissionKey(req.StudentID, req.CohortID), func() error {
		history, err := s.writer.store.ListByStudent(ctx, req.StudentID)
		if err != nil {
			return storeError(err, "")
		}
		for _, prior := range history {
			if prior.CohortID == req.CohortID && !prior.Closed() {
				return appErrors.Clone(appErrors.ErrConflict, "student already has an open engagement in this cohort")
			}
		}
		if err := s.writer.store.Save(ctx, &e); err != nil {
			return storeError(err, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("application submitted", zap.String("engagement_id", e.ID), zap.String("cohort_id", e.CohortID))
	view := viewOf(e, now)
	return &view, nil
}

// RequestTransition moves an engagement to req.Target.
func (s *EngagementService) RequestTransition(ctx context.Context, id string, req dto.TransitionRequest, actor models.Actor) (*dto.EngagementMutation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	target := strings.TrimSpace(req.Target)
	if req.Interview != nil {
		if err := s.validator.Struct(req.Interview); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid interview payload")
		}
		if strings.TrimSpace(req.Interview.Timezone) == "" {
			req.Interview.Timezone = s.cfg.DefaultTimezone
		}
	}

	var warnings []feeschedule.Warning
	next, err := s.writer.mutate(ctx, id, func(current models.Engagement, now time.Time) (*models.Engagement, error) {
		mreq := lifecycle.TransitionRequest{
			Target:    target,
			Feedback:  req.Feedback,
			ActorID:   actor.ID,
			Interview: req.Interview,
			At:        now,
		}
		if target == string(models.ApplicationStatusSelected) {
			cfg, err := s.FeeConfig(ctx, current.CohortID)
			if err != nil {
				return nil, err
			}
			mreq.FeeConfig = cfg
		}
		result, err := s.machine.Transition(current, mreq)
		if err != nil {
			return nil, err
		}
		warnings = result.Warnings
		return &result.Engagement, nil
	})
	s.metrics.ObserveTransition("application", transitionLabel(target), errorCode(err))
	if err != nil {
		return nil, err
	}
	s.logger.Info("engagement transitioned",
		zap.String("engagement_id", id),
		zap.String("target", target),
		zap.String("actor_id", actor.ID),
		zap.Int("warnings", len(warnings)))
	return &dto.EngagementMutation{Engagement: viewOf(*next, s.asOf(time.Time{})), Warnings: warnings}, nil
}

// TransitionEvaluation moves the litmus evaluation one step forward.
func (s *EngagementService) TransitionEvaluation(ctx context.Context, id string, req dto.EvaluationRequest, actor models.Actor) (*dto.EngagementMutation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	next, err := s.writer.mutate(ctx, id, func(current models.Engagement, now time.Time) (*models.Engagement, error) {
		result, err := s.machine.TransitionEvaluation(current, lifecycle.EvaluationRequest{
			Target:                    req.Target,
			Rubric:                    req.Rubric,
			PerformanceRating:         req.PerformanceRating,
			Feedback:                  req.Feedback,
			ScholarshipRecommendation: req.ScholarshipRecommendation,
			ActorID:                   actor.ID,
			At:                        now,
		})
		if err != nil {
			return nil, err
		}
		return &result.Engagement, nil
	})
	s.metrics.ObserveTransition("evaluation", string(req.Target), errorCode(err))
	if err != nil {
		return nil, err
	}
	return &dto.EngagementMutation{Engagement: viewOf(*next, s.asOf(time.Time{}))}, nil
}

// AwardScholarship grants one of the cohort's slabs and re-resolves the
// engagement's schedule if one exists.
func (s *EngagementService) AwardScholarship(ctx context.Context, id string, req dto.AwardScholarshipRequest, actor models.Actor) (*dto.EngagementMutation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scholarship payload")
	}
	var warnings []feeschedule.Warning
	next, err := s.writer.mutate(ctx, id, func(current models.Engagement, now time.Time) (*models.Engagement, error) {
		cfg, err := s.FeeConfig(ctx, current.CohortID)
		if err != nil {
			return nil, err
		}
		result, err := s.machine.AwardScholarship(current, lifecycle.AwardRequest{
			SlabID:    req.SlabID,
			FeeConfig: *cfg,
			ActorID:   actor.ID,
			At:        now,
		})
		if err != nil {
			return nil, err
		}
		warnings = result.Warnings
		return &result.Engagement, nil
	})
	s.metrics.ObserveTransition("scholarship", "award", errorCode(err))
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.logger.Warn("scholarship left frozen line unchanged",
			zap.String("engagement_id", id),
			zap.String("installment_id", w.InstallmentID),
			zap.Int64("frozen_amount", int64(w.FrozenAmount)),
			zap.Int64("current_amount", int64(w.CurrentAmount)))
	}
	return &dto.EngagementMutation{Engagement: viewOf(*next, s.asOf(time.Time{})), Warnings: warnings}, nil
}

func (s *EngagementService) asOf(at time.Time) time.Time {
	if at.IsZero() {
		return s.writer.now().UTC()
	}
	return at.UTC()
}
