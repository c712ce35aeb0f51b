package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/campaign-engine/internal/services"
	svcqueue "github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/internal/worker"
	"github.com/jwebster45206/campaign-engine/pkg/chat"
	"github.com/jwebster45206/campaign-engine/pkg/prompts"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
)

// TurnHandler processes player turns. Synchronous requests run the full
// pipeline inline; async requests are enqueued for a worker.
type TurnHandler struct {
	processor *worker.TurnProcessor
	turnQueue *svcqueue.TurnQueue
	logger    *slog.Logger
}

func NewTurnHandler(processor *worker.TurnProcessor, turnQueue *svcqueue.TurnQueue, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		processor: processor,
		turnQueue: turnQueue,
		logger:    logger,
	}
}

// EnqueueResponse is returned for async turn submissions
type EnqueueResponse struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ServeHTTP handles HTTP requests for turns
// Routes:
// POST /v1/turn        - Process a turn synchronously
// POST /v1/turn/async  - Enqueue a turn for background processing
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for turn endpoint", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Path == "/v1/turn/async" {
		h.handleAsync(w, r, req)
		return
	}
	h.handleSync(w, r, req)
}

func (h *TurnHandler) handleSync(w http.ResponseWriter, r *http.Request, req chat.TurnRequest) {
	resp, err := h.processor.ProcessTurn(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, worker.ErrSessionNotFound):
			h.writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, services.ErrModelUnavailable):
			h.logger.Error("Model unavailable", "error", err, "session_id", req.SessionID.String())
			h.writeError(w, http.StatusServiceUnavailable, "Model backend unavailable")
		case errors.Is(err, prompts.ErrBudgetExceeded):
			h.logger.Error("Token budget exceeded", "error", err, "session_id", req.SessionID.String())
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("Failed to process turn", "error", err, "session_id", req.SessionID.String())
			h.writeError(w, http.StatusInternalServerError, "Failed to process turn")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode turn response", "error", err)
	}
}

func (h *TurnHandler) handleAsync(w http.ResponseWriter, r *http.Request, req chat.TurnRequest) {
	if h.turnQueue == nil {
		h.writeError(w, http.StatusNotImplemented, "Async processing is not configured")
		return
	}

	qReq := &queue.Request{
		RequestID:  uuid.New().String(),
		Type:       queue.RequestTypeTurn,
		SessionID:  req.SessionID,
		Message:    req.Message,
		EnqueuedAt: time.Now(),
	}

	if err := h.turnQueue.EnqueueRequest(r.Context(), qReq); err != nil {
		h.logger.Error("Failed to enqueue turn", "error", err, "session_id", req.SessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to enqueue turn")
		return
	}

	h.logger.Debug("Turn enqueued", "request_id", qReq.RequestID, "session_id", req.SessionID.String())
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(EnqueueResponse{
		RequestID: qReq.RequestID,
		SessionID: req.SessionID.String(),
		Status:    "queued",
	}); err != nil {
		h.logger.Error("Failed to encode enqueue response", "error", err)
	}
}

func (h *TurnHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
