package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

type routerDeps struct {
	metrics    *service.MetricsService
	tokens     internalmiddleware.TokenValidator
	timetables *service.TimetableService
	checks     map[string]handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if !cfg.Timetable.Enabled || deps.timetables == nil {
		return r
	}

	h := handler.NewTimetableHandler(deps.timetables, cfg.APIPrefix)
	writers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleScheduler)
	admins := internalmiddleware.RequireRoles(models.RoleAdmin)

	public := r.Group(cfg.APIPrefix)
	public.GET("/timetables/catalog", internalmiddleware.OptionalJWT(deps.tokens), h.Catalog)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(deps.tokens))

	tt := api.Group("/timetables")
	tt.GET("", h.List)
	tt.POST("/generate", writers, h.Generate)
	tt.GET("/proposals/:id", writers, h.Proposal)
	tt.POST("/proposals/:id/overrides", writers, h.Replan)
	tt.DELETE("/proposals/:id/overrides/last", writers, h.Undo)
	tt.POST("/save", writers, internalmiddleware.Audit(logr, "timetable.save", "timetable"), h.Save)
	tt.POST("/optimize", writers, h.Optimize)
	tt.GET("/jobs/:id", writers, h.Job)
	tt.GET("/:id/placements", h.Placements)
	tt.GET("/:id/export", h.Export)
	tt.DELETE("/:id", admins, internalmiddleware.Audit(logr, "timetable.delete", "timetable"), h.Delete)
	tt.POST("/:id/publish", admins, internalmiddleware.Audit(logr, "timetable.publish", "timetable"), h.Publish)

	return r
}
