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

	"github.com/myksyouki/lesson-manager-sub001/internal/api"
	"github.com/myksyouki/lesson-manager-sub001/internal/api/handler"
	"github.com/myksyouki/lesson-manager-sub001/internal/audio"
	"github.com/myksyouki/lesson-manager-sub001/internal/config"
	"github.com/myksyouki/lesson-manager-sub001/internal/jobstore"
	"github.com/myksyouki/lesson-manager-sub001/internal/logger"
	"github.com/myksyouki/lesson-manager-sub001/internal/pipeline"
	"github.com/myksyouki/lesson-manager-sub001/internal/storage"
	"github.com/myksyouki/lesson-manager-sub001/internal/summarize"
	"github.com/myksyouki/lesson-manager-sub001/internal/tag"
	"github.com/myksyouki/lesson-manager-sub001/internal/transcribe"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database and job store
	db, err := jobstore.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	store := jobstore.NewStore(db)

	// Initialize object storage for storage:// source references
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Wire the pipeline stages
	downloader := audio.NewDownloader(&cfg.Downloads, &cfg.Pipeline, objectStorage)
	prober := audio.NewProber(cfg.Pipeline.FFprobePath)
	splitter := audio.NewSplitter(&cfg.Pipeline)
	transcriber := transcribe.NewClient(&cfg.Whisper)
	summarizer := summarize.NewSummarizer(&cfg.Summary)
	tagger := tag.NewTagger(&cfg.Tagging)

	processor := pipeline.NewProcessor(
		downloader,
		prober,
		splitter,
		transcriber,
		summarizer,
		tagger,
		store,
		&cfg.Pipeline,
	)

	// Setup router
	jobsHandler := handler.NewJobsHandler(processor, store)
	router := api.SetupRouter(jobsHandler, appLogger, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infof("Starting worker server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
