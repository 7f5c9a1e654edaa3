package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/config"
	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/handlers"
	"github.com/SAP-F-2025/proctoring-service/internal/inference"
	"github.com/SAP-F-2025/proctoring-service/internal/llm"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/storage"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/SAP-F-2025/proctoring-service/internal/validator"
	"github.com/SAP-F-2025/proctoring-service/pkg"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. Configuration and logger
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("Starting proctoring service", "environment", cfg.Environment, "port", cfg.Port)

	ctx := context.Background()

	// 2. Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	// The interviews table belongs to the screening backend outside development
	if err := postgres.AutoMigrate(db, !cfg.IsProduction()); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)

	// 3. Status cache, optional
	var statusCache *cache.StatusCache
	if redisClient, err := pkg.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn("Redis unavailable, status cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		statusCache = cache.NewStatusCache(cache.NewRedisCache(redisClient, logger), cfg.StatusTTL, logger)
	}

	// 4. Event publisher
	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	// 5. Detection engine
	engine := buildEngine(ctx, cfg, logger)

	// 6. Optional report summarizer
	var summarizer llm.Summarizer
	if cfg.LLM.Enabled() {
		summarizer = llm.NewReportSummarizer(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
		logger.Info("Report summarizer enabled", "model", cfg.LLM.Model)
	}

	// 7. Services and handlers
	proctoringService := services.NewProctoringService(services.ProctoringDeps{
		Engine:       engine,
		Repo:         repo,
		Publisher:    publisher,
		StatusCache:  statusCache,
		Summarizer:   summarizer,
		Validator:    validator.New(),
		Logger:       logger,
		FrameTimeout: cfg.FrameTimeout,
	})
	exportService := services.NewReportExportService(proctoringService, repo, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlerLogger := utils.FromSlogLogger(logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.RequestID())
	router.Use(utils.LoggerMiddleware(handlerLogger))
	router.Use(utils.ContextLogger(handlerLogger))

	if cfg.Screenshots.Enabled && cfg.Screenshots.Storage == "local" {
		router.Static("/"+storage.ScreenshotDir, filepath.Join(cfg.Screenshots.Dir, storage.ScreenshotDir))
	}

	handlers.NewHandlerManager(proctoringService, exportService, handlerLogger).SetupRoutes(router)

	// 8. Start server with graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if active := engine.ActiveSessions(); len(active) > 0 {
		logger.Warn("Monitoring sessions still active at shutdown", "interview_ids", active)
	}
	logger.Info("Server exited")
}

// buildEngine loads the detection models and returns a disabled engine when
// they are unavailable, so the rest of the service keeps running.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) *proctoring.Engine {
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Inference.Timeout+2*time.Second)
	defer cancel()

	models, err := inference.Load(loadCtx, inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Timeout: cfg.Inference.Timeout,
	}, logger)
	if err != nil {
		logger.Error("CV monitoring disabled", "error", err)
		return proctoring.NewDisabledEngine(err, logger)
	}

	var opts []proctoring.Option
	if store := buildScreenshotStore(ctx, cfg, logger); store != nil {
		opts = append(opts, proctoring.WithScreenshotStore(store))
	}

	engine := proctoring.NewEngine(models, cfg.Proctoring.Engine(), logger, opts...)
	if err := engine.SelfTest(ctx); err != nil {
		logger.Warn("Detection self-test failed", "error", err)
	}
	return engine
}

func buildScreenshotStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) proctoring.ScreenshotStore {
	sc := cfg.Screenshots
	if !sc.Enabled {
		return nil
	}

	switch sc.Storage {
	case "s3":
		store, err := storage.NewS3StoreFromEnv(ctx, sc.S3Region, sc.S3Bucket, sc.S3Prefix)
		if err != nil {
			logger.Error("Failed to configure S3 screenshot storage", "error", err)
			return nil
		}
		logger.Info("Screenshots stored in S3", "bucket", sc.S3Bucket, "prefix", sc.S3Prefix)
		return store
	default:
		store, err := storage.NewLocalStore(sc.Dir)
		if err != nil {
			logger.Error("Failed to configure local screenshot storage", "error", err)
			return nil
		}
		logger.Info("Screenshots stored locally", "dir", sc.Dir)
		return store
	}
}
