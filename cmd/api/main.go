package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/handlers"
	"github.com/jwebster45206/campaign-engine/internal/logger"
	"github.com/jwebster45206/campaign-engine/internal/middleware"
	"github.com/jwebster45206/campaign-engine/internal/services"
	svcqueue "github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/internal/storage"
	"github.com/jwebster45206/campaign-engine/internal/worker"
	"github.com/jwebster45206/campaign-engine/pkg/library"
	"github.com/jwebster45206/campaign-engine/pkg/prompts"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Campaign Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"model_provider", cfg.ModelProvider,
		"model_name", cfg.ModelName)

	var modelService services.ModelService
	switch strings.ToLower(cfg.ModelProvider) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		modelService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic model provider")
	case "mock":
		modelService = services.NewMockModelService()
		log.Info("Using mock model provider")
	default:
		log.Error("Invalid model provider specified", "provider", cfg.ModelProvider, "supported", []string{"anthropic", "mock"})
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// Load the instruction document library
	docStore, err := library.Load(filepath.Join(cfg.DataDir, "documents"), log)
	if err != nil {
		log.Error("Failed to load document library", "error", err)
		os.Exit(1)
	}
	planner := prompts.NewPlanner(docStore)

	// Initialize queue services
	queueClient, err := svcqueue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	turnQueue := svcqueue.NewTurnQueue(queueClient)
	eventQueue := svcqueue.NewWorldEventQueue(queueClient)

	// Initialize the model on startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := modelService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	processor := worker.NewTurnProcessor(store, modelService, planner, eventQueue, cfg, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	turnHandler := handlers.NewTurnHandler(processor, turnQueue, log)
	mux.Handle("/v1/turn", turnHandler)
	mux.Handle("/v1/turn/", turnHandler)

	sessionHandler := handlers.NewSessionHandler(store, cfg, log)
	mux.Handle("/v1/session", sessionHandler)
	mux.Handle("/v1/session/", sessionHandler)

	documentHandler := handlers.NewDocumentHandler(docStore, log)
	mux.Handle("/v1/documents", documentHandler)
	mux.Handle("/v1/documents/", documentHandler)

	eventHandler := handlers.NewWorldEventHandler(eventQueue, turnQueue, log)
	mux.Handle("/v1/event", eventHandler)
	mux.Handle("/v1/event/", eventHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Close storage connection
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
