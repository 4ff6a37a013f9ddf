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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/admission"
	"github.com/nocodemedia/media-server/internal/config"
	"github.com/nocodemedia/media-server/internal/engine"
	"github.com/nocodemedia/media-server/internal/handlers"
	"github.com/nocodemedia/media-server/internal/jobs"
	"github.com/nocodemedia/media-server/internal/logger"
	"github.com/nocodemedia/media-server/internal/metadata"
	"github.com/nocodemedia/media-server/internal/middlewares"
	"github.com/nocodemedia/media-server/internal/render"
	"github.com/nocodemedia/media-server/internal/services"
	"github.com/nocodemedia/media-server/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting media server")

	// Open the metadata index
	metaStore, err := metadata.Open(cfg.Storage.Path)
	if err != nil {
		logger.Logger.Fatal("Failed to open metadata index", zap.Error(err))
	}
	defer metaStore.Close()

	// Initialize storage
	store, err := storage.New(cfg.Storage.Path, metaStore, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Initialize job infrastructure
	admitter := admission.New(cfg.Jobs.MaxConcurrentTTS, cfg.Jobs.MaxConcurrentVideo, cfg.Jobs.MaxConcurrentHeavy)
	queue := jobs.NewQueue(cfg.Jobs.Workers, logger.Logger)

	// Initialize inference and rendering clients
	inference := engine.NewClient(cfg.Inference.URL, cfg.Inference.Timeout, logger.Logger)
	renderer := render.New(cfg.Render.FFmpegPath, logger.Logger)

	// Initialize services
	mediaService := services.NewMediaService(store)
	folderService := services.NewFolderService(store)
	audioService := services.NewAudioService(store, inference, admitter, queue, logger.Logger)
	videoService := services.NewVideoService(store, inference, renderer, admitter, queue, logger.Logger)

	// Initialize handlers
	mediaHandler := handlers.NewMediaHandler(mediaService, logger.Logger)
	folderHandler := handlers.NewFolderHandler(folderService, logger.Logger)
	audioHandler := handlers.NewAudioHandler(audioService, logger.Logger)
	videoHandler := handlers.NewVideoHandler(videoService, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(middlewares.LoggerMiddleware(logger.Logger))
	r.Use(middlewares.RecoveryMiddleware(logger.Logger))
	r.Use(middlewares.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middlewares.RequestSizeLimitMiddleware(cfg.Server.MaxRequestSize))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Scope router to /api/v1/media
	r.Route("/api/v1/media", func(r chi.Router) {
		mediaHandler.RegisterRoutes(r)
		folderHandler.RegisterRoutes(r)
		audioHandler.RegisterRoutes(r)
		videoHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Minute, // Long timeout for large media uploads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown: stop accepting requests, then drain background jobs
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := queue.Shutdown(ctx); err != nil {
		logger.Logger.Error("Background jobs did not drain in time", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
