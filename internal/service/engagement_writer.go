package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admissions-ledger-api/internal/dto"
	"github.com/noah-isme/admissions-ledger-api/internal/ledger"
	"github.com/noah-isme/admissions-ledger-api/internal/lifecycle"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

type engagementStore interface {
	FindByID(ctx context.Context, id string) (*models.Engagement, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Engagement, error)
	ListByCohort(ctx context.Context, cohortID string) ([]models.Engagement, error)
	List(ctx context.Context, filter models.EngagementFilter) ([]models.Engagement, int, error)
	Save(ctx context.Context, e *models.Engagement) error
}

type engagementLocker interface {
	Acquire(ctx context.Context, engagementID string) (repository.Release, error)
}

// engagementWriter runs every mutation as lock, load, decide, persist, unlock
// so two writers never interleave on one engagement.
type engagementWriter struct {
	store   engagementStore
	locker  engagementLocker
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// locked runs fn while holding the lock named key.
func (w *engagementWriter) locked(ctx context.Context, key string, fn func() error) error {
	started := time.Now()
	release, err := w.locker.Acquire(ctx, key)
	w.metrics.ObserveLockWait(err == nil, time.Since(started))
	if err != nil {
		if errors.Is(err, appErrors.ErrLocked) || errors.Is(err, appErrors.ErrRepositoryUnavailable) {
			return err
		}
		return appErrors.Unavailable(err, "acquire engagement lock")
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			w.logger.Warn("release engagement lock", zap.String("lock_key", key), zap.Error(err))
		}
	}()
	return fn()
}

// mutate loads the engagement under its lock and persists whatever decide
// returns. A nil engagement from decide means nothing changed and nothing is
// written; the loaded snapshot is returned instead.
func (w *engagementWriter) mutate(ctx context.Context, id string, decide func(current models.Engagement, now time.Time) (*models.Engagement, error)) (*models.Engagement, error) {
	var result *models.Engagement
	err := w.locked(ctx, id, func() error {
		current, err := w.store.FindByID(ctx, id)
		if err != nil {
			return storeError(err, "engagement not found")
		}

		now := w.now().UTC()
		next, err := decide(*current, now)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		next.UpdatedAt = now
		if err := w.store.Save(ctx, next); err != nil {
			w.logger.Error("persist engagement", zap.String("engagement_id", id), zap.Error(err))
			return storeError(err, "")
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// admissionKey names the lock that serialises applications by one student
// to one cohort.
func admissionKey(studentID, cohortID string) string {
	return "admission:" + studentID + ":" + cohortID
}

// storeError maps repository failures onto API errors. Missing rows become
// NotFound; every other fault is reported as retryable.
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Unavailable(err, "")
}

// viewOf derives the read model of an engagement at asOf.
func viewOf(e models.Engagement, asOf time.Time) dto.EngagementView {
	return dto.EngagementView{
		Engagement:         e,
		EffectiveStatus:    lifecycle.EffectiveStatus(e, asOf),
		AllowedTransitions: lifecycle.AllowedTargets(e, asOf),
		Payment:            ledger.Summarize(e.Schedule, asOf),
	}
}

func errorCode(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.FromError(err).Code
}

// transitionLabel keeps caller-supplied targets out of metric labels unless
// they name a known status.
func transitionLabel(target string) string {
	switch models.EngagementStatus(target) {
	case models.EngagementStatusEnrolled, models.EngagementStatusDropped:
		return target
	}
	if lifecycle.IsApplicationStatus(target) {
		return target
	}
	return "invalid"
}
