package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	internalhandler "github.com/dolphinlong/timetable-core/internal/handler"
	internalmiddleware "github.com/dolphinlong/timetable-core/internal/middleware"
	"github.com/dolphinlong/timetable-core/internal/scheduler/availability"
	"github.com/dolphinlong/timetable-core/internal/service"
	"github.com/dolphinlong/timetable-core/internal/store/pgstore"
	"github.com/dolphinlong/timetable-core/pkg/cache"
	"github.com/dolphinlong/timetable-core/pkg/config"
	"github.com/dolphinlong/timetable-core/pkg/database"
	"github.com/dolphinlong/timetable-core/pkg/logger"
	corsmiddleware "github.com/dolphinlong/timetable-core/pkg/middleware/cors"
	reqidmiddleware "github.com/dolphinlong/timetable-core/pkg/middleware/requestid"
	"github.com/dolphinlong/timetable-core/pkg/metrics"
)

// @title Timetable Scheduling Core
// @version 0.1.0
// @description Constraint-satisfaction scheduling service
// @BasePath /v1
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

	metricsSvc := metrics.New()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	entityStore := pgstore.New(db, cfg.Scheduler.SchoolType)
	profileStore := pgstore.NewProfileStore(db)

	var redisClient availability.RedisClient
	if rc, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, availability cache memoization disabled", "error", err)
	} else {
		redisClient = rc
	}

	pool := service.NewBoundedPool(cfg.Scheduler.WorkerPoolSize)

	runSvc := service.New(profileStore, logr, metricsSvc, pool, service.Config{
		ResultTTL:          cfg.Scheduler.ResultTTL,
		DefaultMaxWallTime: cfg.Scheduler.DefaultMaxWallTime,
		Redis:              redisClient,
		AvailabilityTTL:    cfg.Scheduler.ResultTTL,
	})
	runHandler := internalhandler.NewRunHandler(runSvc, entityStore)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(nil))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/healthz", metricsHandler.Health)
	r.GET("/readyz", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	runs := api.Group("/schedule/runs")
	runs.POST("", runHandler.Generate)
	runs.GET("/:id", runHandler.Get)
	runs.POST("/:id/commit", runHandler.Commit)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("starting scheduler-core", "addr", addr)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server stopped", "error", err)
	}
}
