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

	_ "github.com/schedulo-hq/schedulo-api/api/swagger"
	"github.com/schedulo-hq/schedulo-api/internal/handler"
	internalmiddleware "github.com/schedulo-hq/schedulo-api/internal/middleware"
	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/repository"
	"github.com/schedulo-hq/schedulo-api/internal/service"
	"github.com/schedulo-hq/schedulo-api/pkg/cache"
	"github.com/schedulo-hq/schedulo-api/pkg/config"
	"github.com/schedulo-hq/schedulo-api/pkg/database"
	"github.com/schedulo-hq/schedulo-api/pkg/logger"
	corsmiddleware "github.com/schedulo-hq/schedulo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schedulo-hq/schedulo-api/pkg/middleware/requestid"
)

// @title Schedulo API
// @version 1.0.0
// @description Constraint-based university timetable scheduling service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.CacheTTL, logr, cacheRepo != nil)
	validate := validator.New()

	timetableSvc, err := service.NewTimetableService(
		repository.NewSectionRepository(db),
		repository.NewRoomRepository(db),
		repository.NewFacultyRepository(db),
		repository.NewTimetableRepository(db),
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		cfg.Scheduler,
	)
	if err != nil {
		logr.Sugar().Fatalw("failed to build timetable service", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timetableSvc.StartBatchWorkers(ctx)
	defer timetableSvc.StopBatchWorkers()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	timetables := handler.NewTimetableHandler(timetableSvc)
	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(cfg.JWT.Secret))
	{
		writers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleScheduler)
		api.POST("/timetables/generate", writers, timetables.Generate)
		api.POST("/timetables/generate/batch", writers, timetables.GenerateBatch)
		api.POST("/timetables", writers, timetables.Save)
		api.POST("/timetables/:id/activate", writers, timetables.Activate)
		api.DELETE("/timetables/:id", writers, timetables.Delete)

		api.GET("/timetables", timetables.List)
		api.GET("/timetables/:id", timetables.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
