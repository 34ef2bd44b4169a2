package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentor-assessment-api/api/swagger"
	"github.com/noah-isme/mentor-assessment-api/internal/handler"
	internalmiddleware "github.com/noah-isme/mentor-assessment-api/internal/middleware"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/repository"
	"github.com/noah-isme/mentor-assessment-api/internal/service"
	"github.com/noah-isme/mentor-assessment-api/pkg/cache"
	"github.com/noah-isme/mentor-assessment-api/pkg/config"
	"github.com/noah-isme/mentor-assessment-api/pkg/database"
	"github.com/noah-isme/mentor-assessment-api/pkg/jobs"
	"github.com/noah-isme/mentor-assessment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentor-assessment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mentor-assessment-api/pkg/middleware/requestid"
	"github.com/noah-isme/mentor-assessment-api/pkg/tracing"
)

// @title Mentor Assessment API
// @version 1.0.0
// @description Mentor applications, timed qualification tests and reviewer tooling.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	shutdownTracing, err := tracing.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logr.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	metrics := service.NewMetricsService()

	applicationRepo := repository.NewApplicationRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	eventRepo := repository.NewEventRepository(redisClient, cfg.Events.ListKey)
	poolStore := repository.NewQuestionPoolCache(redisClient, "mentor-assessment")

	notifier := service.NewNotificationService(eventRepo, metrics, logr)
	eventQueue := jobs.NewDispatcher("events", notifier.Handle, jobs.Config{
		Workers:     cfg.Events.Workers,
		MaxAttempts: cfg.Events.MaxRetries + 1,
		Backoff:     time.Second,
		Logger:      logr,
		OnDiscard:   notifier.Discarded,
	})
	eventQueue.Run(ctx)
	defer eventQueue.Shutdown()
	notifier.UseQueue(eventQueue)

	policy, err := service.NewCooldownPolicy(cfg.Assessment.CooldownSchedule, cfg.Assessment.MaxAttempts)
	if err != nil {
		return err
	}
	scorer := service.NewScorer(cfg.Assessment.PassThreshold)
	pools := service.NewPoolCache(poolStore, metrics, cfg.Assessment.QuestionCacheTTL, logr)
	// the bank ships with migrations, so pools cached by a previous release are stale
	if err := pools.Flush(ctx); err != nil {
		logr.Warn("failed to flush question pools", zap.Error(err))
	}
	selector := service.NewQuestionSelector(questionRepo, pools, service.SelectorConfig{
		Count: cfg.Assessment.QuestionCount,
		Mix:   difficultyMix(cfg.Assessment.DifficultyMix),
	}, logr)

	tokenSvc := service.NewTokenService(tokenRepo, notifier, metrics, logr, service.TokenConfig{
		TTL:       cfg.Assessment.TokenTTL,
		TestURL:   cfg.Assessment.TestURL,
		TimeLimit: cfg.Assessment.TimeLimit,
		Questions: cfg.Assessment.QuestionCount,
	})
	sessionSvc := service.NewSessionService(sessionRepo, questionRepo, selector, tokenSvc, scorer, policy, logr,
		service.SessionConfig{TimeLimit: cfg.Assessment.TimeLimit},
		service.WithSessionNotifier(notifier),
		service.WithSessionMetrics(metrics),
	)

	validate := validator.New()
	applicationSvc := service.NewApplicationService(applicationRepo, sessionRepo, tokenSvc, validate, logr, service.ApplicationConfig{
		AutoIssueToken: cfg.Assessment.AutoIssueToken,
	})
	exportSvc := service.NewExportService(applicationRepo, logr)

	if cfg.Reaper.Enabled {
		reaper := service.NewReaper(sessionRepo, sessionSvc, tokenRepo, applicationRepo, notifier, metrics, logr, service.ReaperConfig{
			Interval:        cfg.Reaper.Interval,
			BatchSize:       cfg.Reaper.BatchSize,
			TokenPurgeGrace: cfg.Reaper.TokenPurgeGrace,
		})
		reaper.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(tracing.GinMiddleware())
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	assessmentHandler := handler.NewAssessmentHandler(tokenSvc, sessionSvc, validate)

	public := api.Group("/mentor-applications")
	if cfg.RateLimit.Enabled {
		public.Use(internalmiddleware.RateLimit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	public.GET("/specializations", applicationHandler.Specializations)
	public.POST("/apply", applicationHandler.Apply)
	public.GET("/status/:email", applicationHandler.Status)
	public.POST("/verify-token", assessmentHandler.Verify)
	public.POST("/start-test", assessmentHandler.Start)
	public.POST("/resume-test", assessmentHandler.Resume)
	public.POST("/submit-test", assessmentHandler.Submit)

	adminHandler := handler.NewAdminHandler(applicationSvc, sessionSvc, exportSvc, validate)
	admin := api.Group("/admin")
	admin.Use(internalmiddleware.JWT(service.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.Issuer)))
	admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleReviewer))
	admin.GET("/mentor-applications", adminHandler.List)
	admin.GET("/mentor-applications/export", adminHandler.Export)
	admin.GET("/mentor-applications/:id", adminHandler.Get)
	admin.POST("/mentor-applications/:id/issue-token", adminHandler.IssueToken)
	admin.POST("/mentor-applications/:id/reinstate", adminHandler.Reinstate)
	admin.POST("/mentor-applications/:id/withdraw", adminHandler.Withdraw)
	admin.GET("/test-sessions/:id/review", adminHandler.Review)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func difficultyMix(raw map[string]int) map[models.Difficulty]int {
	if len(raw) == 0 {
		return nil
	}
	mix := make(map[models.Difficulty]int, len(raw))
	for name, pct := range raw {
		mix[models.Difficulty(name)] = pct
	}
	return mix
}
