package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusgrid/timetable-api/api/swagger"
	"github.com/campusgrid/timetable-api/internal/dto"
	"github.com/campusgrid/timetable-api/internal/handler"
	"github.com/campusgrid/timetable-api/internal/middleware"
	"github.com/campusgrid/timetable-api/internal/repository"
	"github.com/campusgrid/timetable-api/internal/service"
	"github.com/campusgrid/timetable-api/pkg/cache"
	"github.com/campusgrid/timetable-api/pkg/config"
	"github.com/campusgrid/timetable-api/pkg/database"
	"github.com/campusgrid/timetable-api/pkg/jobs"
	"github.com/campusgrid/timetable-api/pkg/logger"
	corsmiddleware "github.com/campusgrid/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusgrid/timetable-api/pkg/middleware/requestid"
)

// @title CampusGrid Timetable API
// @version 0.1.0
// @description Weekly timetable construction, activity planning and progress tracking
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// View caching degrades to direct snapshot reads without Redis.
		logr.Warn("redis unavailable, view cache disabled", zap.Error(err))
		redisClient = nil
	}

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	timetableSvc := service.NewTimetableService(
		teacherRepo, classRepo, subjectRepo, studentRepo,
		timetableRepo, progressRepo, settingsRepo, metrics, cacheRepo,
		cfg.Generator, cfg.Activity, logr,
	)
	viewSvc := service.NewViewService(timetableSvc, studentRepo, progressRepo, cacheRepo, metrics, cfg.Views.CacheTTL, logr)
	progressSvc := service.NewProgressService(progressRepo, studentRepo, logr)

	queue := jobs.NewQueue("timetable-generation", func(ctx context.Context, job jobs.Job) error {
		req, ok := job.Payload.(dto.GenerateTimetableRequest)
		if !ok {
			logr.Error("unexpected job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
			return nil
		}
		_, err := timetableSvc.Generate(ctx, req)
		return err
	}, jobs.QueueConfig{Workers: 1, Logger: logr})

	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()
	queue.Start(queueCtx)
	defer queue.Stop()

	timetableHandler := handler.NewTimetableHandler(timetableSvc, viewSvc, queue)
	studentHandler := handler.NewStudentHandler(viewSvc, progressSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		timetable := api.Group("/timetable")
		{
			timetable.POST("/generate", timetableHandler.Generate)
			timetable.GET("/runs/latest", timetableHandler.LatestRun)
			timetable.GET("/classes/:id", timetableHandler.ClassTimetable)
			timetable.GET("/teachers/:id", timetableHandler.TeacherTimetable)
			if cfg.Export.Enabled {
				timetable.GET("/classes/:id/export", timetableHandler.ExportClassTimetable)
			}
		}

		students := api.Group("/students")
		{
			students.GET("/:id/timetable", studentHandler.Timetable)
			students.GET("/:id/plan", studentHandler.Plan)
			students.GET("/:id/progress", studentHandler.Progress)
			students.POST("/:id/progress", studentHandler.UpdateProgress)
			students.PUT("/:id/progress", studentHandler.UpdateProgress)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
