package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/pkg/chat"
	queuePkg "github.com/jwebster45206/campaign-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
)

// Worker processes requests from the turn queue
type Worker struct {
	id          string
	queue       *queue.TurnQueue
	processor   *TurnProcessor
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(turnQueue *queue.TurnQueue, processor *TurnProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       turnQueue,
		processor:   processor,
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (timeout to check for shutdown)
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Timeout or shutdown - this is normal
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}

	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"session_id", req.SessionID.String(),
	)

	// Try to acquire session lock
	locked, err := w.acquireSessionLock(req.SessionID)
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !locked {
		// Another worker is processing this session
		// Re-queue at the end and try next request
		w.log.Info("Session already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String(),
		)
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	// Process the request, blocking the worker until done
	defer w.releaseSessionLock(req.SessionID)
	return w.processRequest(req)
}

// acquireSessionLock attempts to acquire a lock for a session
// Returns true if lock was acquired, false if already locked
func (w *Worker) acquireSessionLock(sessionID uuid.UUID) (bool, error) {
	lockKey := fmt.Sprintf("session-lock:%s", sessionID.String())

	result, err := w.redisClient.SetNX(w.ctx, lockKey, w.id, lockTTL).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

// releaseSessionLock releases the lock for a session
func (w *Worker) releaseSessionLock(sessionID uuid.UUID) {
	lockKey := fmt.Sprintf("session-lock:%s", sessionID.String())

	// Only delete if we own the lock
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	if err := script.Run(w.ctx, w.redisClient, []string{lockKey}, w.id).Err(); err != nil {
		w.log.Error("Failed to release session lock", "error", err, "session_id", sessionID.String())
	}
}

// processRequest processes a single request using the TurnProcessor
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()

	var message string
	switch req.Type {
	case queuePkg.RequestTypeTurn:
		message = req.Message
	case queuePkg.RequestTypeWorldEvent:
		// World events run through the same pipeline as player turns.
		// (The model API doesn't allow system messages in chat history.)
		message = fmt.Sprintf("WORLD EVENT: %s", req.EventPrompt)
	default:
		return fmt.Errorf("unknown request type: %s", req.Type)
	}

	turnReq := chat.TurnRequest{
		SessionID: req.SessionID,
		Message:   message,
	}

	resp, err := w.processor.ProcessTurn(w.ctx, turnReq)
	if err != nil {
		w.log.Error("Failed to process request",
			"error", err,
			"worker_id", w.id,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String(),
		)
		return fmt.Errorf("failed to process request: %w", err)
	}

	w.log.Info("Request processed successfully",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"stage", resp.Stage,
		"inconsistent", resp.Inconsistent,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
