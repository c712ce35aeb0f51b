package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/logger"
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

	log.Info("Starting Campaign Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	// Initialize queue service
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
	log.Info("Queue service initialized successfully")

	// Initialize storage service
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
	log.Info("Storage service initialized successfully")

	// Load the instruction document library
	docStore, err := library.Load(filepath.Join(cfg.DataDir, "documents"), log)
	if err != nil {
		log.Error("Failed to load document library", "error", err)
		os.Exit(1)
	}
	planner := prompts.NewPlanner(docStore)
	log.Info("Document library loaded", "documents", docStore.Len())

	// Initialize model service
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

	// Initialize the model
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer initCancel()
	if err := modelService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}
	log.Info("Model service initialized successfully", "model", cfg.ModelName)

	// Create TurnProcessor
	processor := worker.NewTurnProcessor(store, modelService, planner, eventQueue, cfg, log)
	log.Info("Turn processor initialized successfully")

	// Create and start worker with processor
	w := worker.New(turnQueue, processor, queueClient.GetRedisClient(), log, os.Getenv("WORKER_ID"))

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start worker in goroutine
	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...")

	// Wait for shutdown signal
	<-quit
	log.Info("Worker shutdown signal received")

	// Stop worker
	w.Stop()

	// Give worker time to finish current request
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
