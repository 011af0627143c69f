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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable allocation: greedy and optimizer scheduling, proposals, versioned timetables and exports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Timetable.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "timetable", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled && redisClient != nil)

	timetables := service.NewTimetableService(
		repository.NewTimetableRepository(db),
		repository.NewTimetablePlacementRepository(db),
		db,
		cacheSvc,
		metrics,
		validator.New(),
		logr,
		service.TimetableServiceConfig{
			DefaultStrategy:  cfg.Timetable.Strategy,
			FallbackToGreedy: cfg.Timetable.FallbackToGreedy,
			ForbidBackToBack: cfg.Timetable.ForbidBackToBack,
			ProposalTTL:      cfg.Timetable.ProposalTTL,
			CacheTTL:         cfg.Timetable.CacheTTL,
			Catalog:          engine.DefaultCatalog(),
		},
	)

	if err := timetables.PurgeProposalCache(ctx); err != nil {
		logr.Warn("stale proposal cache not purged", zap.Error(err))
	}

	queue := jobs.NewQueue("timetable-optimize", timetables.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		JobTimeout: 10 * time.Minute,
		OnFailure:  timetables.FailJob,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	timetables.AttachQueue(queue)

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	r := newRouter(cfg, logr, routerDeps{
		metrics:    metrics,
		tokens:     tokens,
		timetables: timetables,
		checks:     readinessChecks(db, cacheRepo),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.PingContext)}
	if cacheRepo.Enabled() {
		checks["cache"] = cacheRepo
	}
	return checks
}
