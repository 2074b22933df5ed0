package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-ledger-api/internal/handler"
	"github.com/noah-isme/admissions-ledger-api/internal/middleware"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/internal/service"
	"github.com/noah-isme/admissions-ledger-api/pkg/config"
	"github.com/noah-isme/admissions-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/admissions-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admissions-ledger-api/pkg/middleware/requestid"
)

type routerDeps struct {
	tokens      middleware.TokenValidator
	metrics     *service.MetricsService
	engagements *handler.EngagementHandler
	ledger      *handler.LedgerHandler
	cohorts     *handler.CohortHandler
	probes      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Features.Metrics {
		r.Use(middleware.Metrics(deps.metrics))
		r.GET("/metrics", deps.probes.Prometheus)
	}

	r.GET("/health", deps.probes.Health)
	r.GET("/ready", deps.probes.Ready)

	if cfg.Features.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	const (
		admin     = string(models.RoleAdmin)
		reviewer  = string(models.RoleReviewer)
		evaluator = string(models.RoleEvaluator)
		collector = string(models.RoleFeeCollector)
		student   = string(models.RoleStudent)
		self      = "SELF"
	)
	staff := []string{admin, reviewer, evaluator, collector}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens))

	api.GET("/students/:studentId/engagement", middleware.RBAC(append(staff, self)...), deps.engagements.FetchLatest)

	engagements := api.Group("/engagements")
	engagements.GET("", middleware.RBAC(staff...), deps.engagements.List)
	engagements.POST("", middleware.RBAC(admin, reviewer, student), deps.engagements.Submit)
	engagements.GET("/:id", middleware.RBAC(staff...), deps.engagements.Get)
	engagements.POST("/:id/transitions", middleware.RBAC(admin, reviewer), deps.engagements.Transition)
	engagements.POST("/:id/evaluation", middleware.RBAC(admin, evaluator), deps.engagements.Evaluation)
	engagements.POST("/:id/scholarship", middleware.RBAC(admin, reviewer), deps.engagements.AwardScholarship)
	engagements.POST("/:id/installments/:installmentId/receipts", middleware.RBAC(admin, collector, student), deps.ledger.RecordReceipt)
	engagements.POST("/:id/installments/:installmentId/verification", middleware.RBAC(admin, collector), deps.ledger.Verify)

	cohorts := api.Group("/cohorts/:cohortId")
	cohorts.GET("/fee-config", middleware.RBAC(append(staff, student)...), deps.cohorts.FeeConfig)
	cohorts.PUT("/fee-config", middleware.RBAC(admin), deps.cohorts.SaveFeeConfig)
	cohorts.GET("/fee-schedule/preview", middleware.RBAC(append(staff, student)...), deps.cohorts.PreviewSchedule)
	cohorts.GET("/collections", middleware.RBAC(admin, collector), deps.cohorts.Collections)
	cohorts.GET("/collections/export", middleware.RBAC(admin, collector), deps.cohorts.Export)

	return r
}
