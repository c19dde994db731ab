package main

import (
	"context"
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

	_ "github.com/campuslink/grievance-api/api/swagger"
	"github.com/campuslink/grievance-api/internal/handler"
	"github.com/campuslink/grievance-api/internal/middleware"
	"github.com/campuslink/grievance-api/internal/models"
	"github.com/campuslink/grievance-api/internal/repository"
	"github.com/campuslink/grievance-api/internal/service"
	"github.com/campuslink/grievance-api/pkg/cache"
	"github.com/campuslink/grievance-api/pkg/config"
	"github.com/campuslink/grievance-api/pkg/database"
	"github.com/campuslink/grievance-api/pkg/logger"
	corsmiddleware "github.com/campuslink/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuslink/grievance-api/pkg/middleware/requestid"
	"github.com/campuslink/grievance-api/pkg/storage"
)

// @title CampusLink Grievance API
// @version 1.0.0
// @description Student grievance lifecycle, routing, and analytics
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Analytics.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, analytics cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, true)
		}
	}

	grievanceRepo := repository.NewGrievanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	routingSvc := service.NewRoutingService()
	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, profileRepo, auditRepo, cfg.JWT, logr)
	grievanceSvc := service.NewGrievanceService(service.GrievanceServiceParams{
		Repo:      grievanceRepo,
		Routing:   routingSvc,
		Audit:     auditRepo,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		Config:    service.GrievanceServiceConfig{RetractWindow: cfg.Grievance.RetractWindow},
	})
	analyticsSvc := service.NewAnalyticsService(grievanceRepo, routingSvc, cacheSvc, logr, cfg.Analytics.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc = service.NewExportService(service.ExportServiceParams{
			Grievances:  grievanceRepo,
			Profiles:    profileRepo,
			Routing:     routingSvc,
			Store:       store,
			Signer:      signer,
			Logger:      logr,
			Concurrency: cfg.Reports.WorkerConcurrency,
			Retries:     cfg.Reports.WorkerRetries,
		})
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	var exportHandler *handler.ExportHandler
	if exportSvc != nil {
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	grievanceHandler := handler.NewGrievanceHandler(grievanceSvc, profileRepo)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, profileRepo)
	directoryHandler := handler.NewDirectoryHandler(profileRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Metrics)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.GET("/auth/me", authHandler.Me)
			authed.GET("/grievances", grievanceHandler.List)
			authed.GET("/grievances/:id", grievanceHandler.Get)

			student := authed.Group("")
			student.Use(middleware.RequireRoles(models.RoleStudent))
			{
				student.POST("/grievances", grievanceHandler.Create)
				student.DELETE("/grievances/:id", grievanceHandler.Retract)
				student.POST("/grievances/:id/feedback", grievanceHandler.Feedback)
			}

			authority := authed.Group("")
			authority.Use(middleware.RequireRoles(models.RoleAuthority))
			{
				authority.PATCH("/grievances/:id/status", grievanceHandler.Transition)
			}

			admin := authed.Group("")
			admin.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				admin.GET("/authorities", directoryHandler.List)
			}

			stats := authed.Group("")
			stats.Use(middleware.RequireRoles(models.RoleAuthority, models.RoleAdmin))
			{
				stats.GET("/stats", analyticsHandler.Stats)
				if exportHandler != nil {
					stats.POST("/reports", exportHandler.Request)
					stats.GET("/reports/:id", exportHandler.Status)
				}
			}
		}

		// Download tokens are self-authenticating; the route stays outside
		// the JWT group so emailed links work without a session.
		if exportHandler != nil {
			api.GET("/reports/download", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
