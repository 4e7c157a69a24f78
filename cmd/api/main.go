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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/teachhub/teachhub-api/api/swagger"
	"github.com/teachhub/teachhub-api/pkg/cache"
	"github.com/teachhub/teachhub-api/pkg/config"
	"github.com/teachhub/teachhub-api/pkg/database"
	"github.com/teachhub/teachhub-api/pkg/logger"
	corsmiddleware "github.com/teachhub/teachhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/teachhub/teachhub-api/pkg/middleware/requestid"
	"github.com/teachhub/teachhub-api/pkg/storage"

	"github.com/teachhub/teachhub-api/internal/handler"
	"github.com/teachhub/teachhub-api/internal/middleware"
	"github.com/teachhub/teachhub-api/internal/repository"
	"github.com/teachhub/teachhub-api/internal/service"
)

// @title TeachHub API
// @version 1.0.0
// @description Course batch, enrollment and content delivery platform
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, access gate cache disabled", "error", err)
		redisClient = nil
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var accessCache *repository.CacheRepository
	if redisClient != nil && cfg.AccessCache.Enabled {
		accessCache = repository.NewCacheRepository(redisClient, logr)
	}

	cleaner := service.NewUploadCleaner(uploadStore, cfg.Uploads, logr)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)

	var accessService *service.AccessService
	if accessCache != nil {
		accessService = service.NewAccessService(enrollmentRepo, accessCache, cfg.AccessCache.TTL, metrics, logr)
	} else {
		accessService = service.NewAccessService(enrollmentRepo, nil, cfg.AccessCache.TTL, metrics, logr)
	}

	notificationService := service.NewNotificationService(notificationRepo, sectionRepo, batchRepo, enrollmentRepo, metrics, logr)
	batchService := service.NewBatchService(batchRepo, accessService, cleaner, validate, logr)
	sectionService := service.NewSectionService(sectionRepo, batchRepo, lessonRepo, cleaner, validate, logr)
	lessonService := service.NewLessonService(lessonRepo, sectionRepo, notificationService, cleaner, validate, logr)
	noteService := service.NewNoteService(noteRepo, lessonRepo, notificationService, cleaner, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, batchRepo, userRepo, accessService, validate, logr)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService = service.NewExportService(enrollmentRepo, batchRepo, exportStore, signer, cfg.Exports, logr)
		exportService.StartCleanup(ctx)
	}

	if err := userService.EnsureAdmin(ctx, cfg.Admin); err != nil {
		logr.Sugar().Fatalw("failed to bootstrap admin account", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authService, userService),
		Batches:       handler.NewBatchHandler(batchService, sectionService, accessService),
		Sections:      handler.NewSectionHandler(sectionService, lessonService, accessService),
		Lessons:       handler.NewLessonHandler(lessonService, sectionService, accessService),
		Notes:         handler.NewNoteHandler(noteService, lessonService, sectionService, accessService),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Exports:       handler.NewExportHandler(exportService),
		Metrics:       handler.NewMetricsHandler(metrics, db.DB),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, authService, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
