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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadplan/timetable-api/api/swagger"
	"github.com/acadplan/timetable-api/internal/handler"
	"github.com/acadplan/timetable-api/internal/middleware"
	"github.com/acadplan/timetable-api/internal/repository"
	"github.com/acadplan/timetable-api/internal/service"
	"github.com/acadplan/timetable-api/internal/solver"
	"github.com/acadplan/timetable-api/pkg/cache"
	"github.com/acadplan/timetable-api/pkg/config"
	"github.com/acadplan/timetable-api/pkg/database"
	"github.com/acadplan/timetable-api/pkg/jobs"
	"github.com/acadplan/timetable-api/pkg/logger"
	corsmiddleware "github.com/acadplan/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadplan/timetable-api/pkg/middleware/requestid"
)

// @title AcadPlan Timetable API
// @version 0.1.0
// @description Timetable generation pipeline and schedule queries
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("migrations failed", "error", err)
	}

	var redisClient *redis.Client
	if cfg.QueryCache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, schedule queries uncached", "error", err)
			redisClient = nil
		}
	}

	timeStructureRepo := repository.NewTimeStructureRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	constraintRepo := repository.NewConstraintRepository(db)
	userRepo := repository.NewUserRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	jobRepo := repository.NewJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	validate := validator.New()

	exportSvc := service.NewExportService(
		timeStructureRepo, catalogRepo, levelRepo, activityRepo, constraintRepo,
		logr, service.ExportConfig{
			University: cfg.Institution.University,
			Faculty:    cfg.Institution.Faculty,
			BreakDay:   cfg.Breaks.Day,
			BreakHours: cfg.Breaks.Hours,
		})

	runner := solver.NewRunner(solver.Config{
		Binary:         cfg.Solver.Binary,
		WorkDir:        cfg.Solver.WorkDir,
		OutputRelPath:  cfg.Solver.OutputRelPath,
		Timeout:        cfg.Solver.Timeout,
		StagingRetries: cfg.Solver.StagingRetries,
	}, logr)

	generationSvc := service.NewGenerationService(jobRepo, userRepo, scheduleRepo, exportSvc, runner, metrics, validate, logr)
	queue := jobs.NewQueue("generation", generationSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Generation.Workers,
		BufferSize: cfg.Generation.BufferSize,
		Logger:     logr,
	})
	generationSvc.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	scheduleSvc := service.NewScheduleService(scheduleRepo, cacheRepo, cfg.QueryCache.TTL, validate, logr)

	generationHandler := handler.NewGenerationHandler(generationSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.JWT.Secret != "" {
		api.Use(middleware.JWT(cfg.JWT.Secret))
	}

	timetables := api.Group("/timetables")
	timetables.POST("/generate", generationHandler.Generate)
	timetables.POST("/process", generationHandler.Process)
	timetables.GET("/jobs/:id", generationHandler.Status)
	timetables.DELETE("/jobs/:id", generationHandler.Cancel)

	schedules := api.Group("/schedules")
	schedules.POST("", scheduleHandler.Create)
	schedules.GET("", scheduleHandler.List)
	schedules.GET("/:id", scheduleHandler.Get)
	schedules.PUT("/:id", scheduleHandler.Update)
	schedules.DELETE("/:id", scheduleHandler.Delete)
	schedules.GET("/:id/teachers/:name", scheduleHandler.ByTeacher)
	schedules.GET("/:id/groups/:name", scheduleHandler.ByGroup)
	schedules.GET("/:id/rooms/:name", scheduleHandler.ByRoom)
	schedules.GET("/:id/export", scheduleHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
