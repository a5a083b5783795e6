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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/studyport/schedule-api/api/swagger"
	"github.com/studyport/schedule-api/internal/handler"
	"github.com/studyport/schedule-api/internal/middleware"
	"github.com/studyport/schedule-api/internal/repository"
	"github.com/studyport/schedule-api/internal/service"
	"github.com/studyport/schedule-api/pkg/cache"
	"github.com/studyport/schedule-api/pkg/config"
	"github.com/studyport/schedule-api/pkg/logger"
	corsmiddleware "github.com/studyport/schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyport/schedule-api/pkg/middleware/requestid"
)

// @title StudyPort Schedule API
// @version 1.0.0
// @description Session schedule reconciliation and visibility service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Schedule.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without shared fetch cache", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Schedule.CacheTTL, logr, cfg.Schedule.CacheEnabled && cacheRepo != nil)

	portal := repository.NewPortalRepository(cfg.Portal, logr)
	source := service.NewCachedScheduleSource(portal, cacheSvc, metrics, cfg.Schedule.CacheTTL, logr)

	scheduleSvc := service.NewScheduleService(source, metrics, nil, logr, cfg.Schedule)
	exportSvc := service.NewExportService(scheduleSvc, logr)
	tokens := service.NewTokenService(cfg.JWT)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduleSvc.Start(rootCtx)
	defer scheduleSvc.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokens))
	{
		api.GET("/schedule", scheduleHandler.View)
		api.PUT("/schedule/page", scheduleHandler.SetPage)
		api.POST("/schedule/refresh", scheduleHandler.Refresh)
		if cfg.Export.Enabled {
			api.GET("/schedule/export", exportHandler.Download)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
