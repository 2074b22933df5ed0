package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/admissions-ledger-api/api/swagger"
	"github.com/noah-isme/admissions-ledger-api/internal/handler"
	"github.com/noah-isme/admissions-ledger-api/internal/repository"
	"github.com/noah-isme/admissions-ledger-api/internal/service"
	"github.com/noah-isme/admissions-ledger-api/pkg/cache"
	"github.com/noah-isme/admissions-ledger-api/pkg/config"
	"github.com/noah-isme/admissions-ledger-api/pkg/database"
	"github.com/noah-isme/admissions-ledger-api/pkg/logger"
)

// @title Admissions Ledger API
// @version 1.0.0
// @description Admissions lifecycle, fee schedules and payment ledger for cohort programmes.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
		logr.Info("schema migrated")
	}

	lockOpts := repository.LockOptions{TTL: cfg.Lock.TTL, Wait: cfg.Lock.Wait, Retry: cfg.Lock.Retry}
	var locker interface {
		Acquire(ctx context.Context, engagementID string) (repository.Release, error)
	}
	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer client.Close() //nolint:errcheck
		locker = repository.NewRedisLockRepository(client, lockOpts)
	default:
		logr.Warn("using in-process engagement locks; run a single replica")
		locker = repository.NewMemoryLockRepository(lockOpts)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	engagementRepo := repository.NewEngagementRepository(db)
	cohortRepo := repository.NewCohortRepository(db)

	engagements := service.NewEngagementService(service.EngagementServiceParams{
		Engagements: engagementRepo,
		Cohorts:     cohortRepo,
		Locker:      locker,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr.Named("engagements"),
		Config:      service.EngagementServiceConfig{DefaultTimezone: cfg.Ledger.Timezone},
	})
	ledger := service.NewLedgerService(service.LedgerServiceParams{
		Engagements: engagementRepo,
		Locker:      locker,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr.Named("ledger"),
	})
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Engagements: engagementRepo,
		Logger:      logr.Named("dashboard"),
		Config:      service.DashboardServiceConfig{Currency: cfg.Ledger.Currency},
	})
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	r := newRouter(cfg, logr, routerDeps{
		tokens:      tokens,
		metrics:     metrics,
		engagements: handler.NewEngagementHandler(engagements),
		ledger:      handler.NewLedgerHandler(ledger),
		cohorts:     handler.NewCohortHandler(engagements, dashboard),
		probes:      handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "lock_backend", cfg.Lock.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
