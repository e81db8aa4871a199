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

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/events"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/handler"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/middleware"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/repository"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/service"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/cache"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/config"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/database"
	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/logger"
	corsmiddleware "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/middleware/cors"
	reqidmiddleware "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/middleware/requestid"
)

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

	// Redis is optional. Without it the schedule cache and promotion
	// publisher degrade to no-ops and every read hits postgres.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and promotion events disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	catalogRepo := repository.NewCatalogRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	promotionPub := events.NewPromotionPublisher(redisClient, logr)
	scheduleCache := events.NewScheduleCache(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	scheduleSvc := service.NewScheduleService(catalogRepo, scheduleRepo, scheduleCache, cfg.Solver, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(requestRepo, catalogRepo, scheduleRepo, promotionPub, cfg.Allocator, nil, logr)
	exportSvc := service.NewExportService(catalogRepo, scheduleRepo, requestRepo, logr)

	// A re-commit changes slots and capacities underneath any ledger built
	// from the previous schedule; the next pass must rebuild from scratch.
	scheduleSvc.OnCommit(enrollmentSvc.InvalidateLedger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enrollmentSvc.Start(ctx)
	defer enrollmentSvc.Stop()

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, metricsSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc, cfg.Export.Enabled)
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

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/schedule/solve", scheduleHandler.Solve)
		api.POST("/schedule/resolve", scheduleHandler.Resolve)

		terms := api.Group("/terms/:termId")

		terms.GET("/schedule", scheduleHandler.Get)

		terms.POST("/enrollments", enrollmentHandler.Submit)
		terms.POST("/enrollments/allocate", enrollmentHandler.Allocate)
		terms.GET("/enrollments/:requestId", enrollmentHandler.Request)
		terms.DELETE("/enrollments/:requestId", enrollmentHandler.Drop)
		terms.PUT("/sections/:sectionId/capacity", enrollmentHandler.SetCapacity)
		terms.GET("/sections/:sectionId/waitlist", enrollmentHandler.Waitlist)

		terms.GET("/exports/schedule", exportHandler.Schedule)
		terms.GET("/exports/roster", exportHandler.Roster)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
