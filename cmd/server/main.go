package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ucampus/portal-academico-api/api/swagger"
	"github.com/ucampus/portal-academico-api/internal/handler"
	"github.com/ucampus/portal-academico-api/internal/middleware"
	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/internal/repository"
	"github.com/ucampus/portal-academico-api/internal/service"
	"github.com/ucampus/portal-academico-api/pkg/cache"
	"github.com/ucampus/portal-academico-api/pkg/config"
	"github.com/ucampus/portal-academico-api/pkg/database"
	"github.com/ucampus/portal-academico-api/pkg/logger"
	corsmiddleware "github.com/ucampus/portal-academico-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ucampus/portal-academico-api/pkg/middleware/requestid"
)

// @title Portal Académico API
// @version 1.0.0
// @description Course catalog and enrollment service
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// The portal keeps working without Redis; listings just skip the cache.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.ListingTTL, logr, redisClient != nil)

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, logr)
	catalogSvc := service.NewCatalogService(courseRepo, cacheSvc, metricsSvc, validate, logr, cfg.Catalog.ListingTTL, cfg.Catalog.RecentTTL)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(courseRepo, enrollmentRepo, logr)
	auditSvc := service.NewAuditService(auditRepo, service.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
	}, logr)
	auditSvc.Start(context.Background())
	defer auditSvc.Stop()

	courseHandler := handler.NewCourseHandler(catalogSvc, exportSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "cache"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	courses := api.Group("/courses")
	{
		courses.GET("", middleware.OptionalJWT(authSvc), courseHandler.List)
		courses.GET("/recent", middleware.JWT(authSvc), courseHandler.Recent)
		courses.GET("/:id", middleware.OptionalJWT(authSvc), courseHandler.Get)
		courses.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator),
			middleware.Audit(auditSvc, models.AuditActionCourseCreate, "course"), courseHandler.Create)
		courses.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator),
			middleware.Audit(auditSvc, models.AuditActionCourseUpdate, "course"), courseHandler.Update)
		courses.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator),
			middleware.Audit(auditSvc, models.AuditActionCourseDeactivate, "course"), courseHandler.Deactivate)
		courses.GET("/:id/roster/export", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator),
			courseHandler.ExportRoster)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.POST("", middleware.JWT(authSvc),
			middleware.Audit(auditSvc, models.AuditActionEnrollmentCreate, "enrollment"), enrollmentHandler.Create)
		enrollments.GET("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator), enrollmentHandler.List)
		enrollments.PUT("/:id/confirm", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator),
			middleware.Audit(auditSvc, models.AuditActionEnrollConfirm, "enrollment"), enrollmentHandler.Confirm)
		enrollments.PUT("/:id/cancel", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator),
			middleware.Audit(auditSvc, models.AuditActionEnrollCancel, "enrollment"), enrollmentHandler.Cancel)
	}

	api.GET("/system/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleCoordinator), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
