package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	svcqueue "github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
)

// WorldEventHandler queues world-event prompts for a session. By default
// events wait until the session's next turn; an immediate event is handed to
// the turn queue as its own turn. Neither interrupts a turn in flight.
type WorldEventHandler struct {
	events *svcqueue.WorldEventQueue
	turns  *svcqueue.TurnQueue
	logger *slog.Logger
}

// NewWorldEventHandler creates the handler. turns may be nil when no worker
// pool is running; immediate events then return 501.
func NewWorldEventHandler(events *svcqueue.WorldEventQueue, turns *svcqueue.TurnQueue, logger *slog.Logger) *WorldEventHandler {
	return &WorldEventHandler{
		events: events,
		turns:  turns,
		logger: logger,
	}
}

// WorldEventRequest defines the request body for queueing a world event
type WorldEventRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Prompt    string    `json:"prompt"`
	Immediate bool      `json:"immediate,omitempty"`
}

// ServeHTTP handles HTTP requests for world events
// Routes:
// POST /v1/event            - Queue a world event for a session
// GET /v1/event/{session}   - Peek queued events for a session
func (h *WorldEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		h.handleEnqueue(w, r)

	case http.MethodGet:
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/event"), "/")
		sessionID, err := uuid.Parse(path)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		h.handlePeek(w, r, sessionID)

	default:
		h.logger.Warn("Method not allowed for event endpoint", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET")
	}
}

func (h *WorldEventHandler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req WorldEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if req.SessionID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Prompt == "" {
		h.writeError(w, http.StatusBadRequest, "prompt cannot be empty")
		return
	}

	if req.Immediate {
		h.handleImmediate(w, r, req)
		return
	}

	if err := h.events.Enqueue(r.Context(), req.SessionID, req.Prompt); err != nil {
		h.logger.Error("Failed to enqueue world event", "error", err, "session_id", req.SessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to enqueue world event")
		return
	}

	h.logger.Debug("World event enqueued", "session_id", req.SessionID.String())
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "queued"}); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// handleImmediate enqueues the event as a world-event turn for a worker
// instead of parking it until the player's next message.
func (h *WorldEventHandler) handleImmediate(w http.ResponseWriter, r *http.Request, req WorldEventRequest) {
	if h.turns == nil {
		h.writeError(w, http.StatusNotImplemented, "Immediate event processing is not configured")
		return
	}

	qReq := &queue.Request{
		RequestID:   uuid.New().String(),
		Type:        queue.RequestTypeWorldEvent,
		SessionID:   req.SessionID,
		EventPrompt: req.Prompt,
		EnqueuedAt:  time.Now(),
	}

	if err := h.turns.EnqueueRequest(r.Context(), qReq); err != nil {
		h.logger.Error("Failed to enqueue immediate world event", "error", err, "session_id", req.SessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to enqueue world event")
		return
	}

	h.logger.Debug("Immediate world event enqueued", "request_id", qReq.RequestID, "session_id", req.SessionID.String())
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(EnqueueResponse{
		RequestID: qReq.RequestID,
		SessionID: req.SessionID.String(),
		Status:    "queued",
	}); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *WorldEventHandler) handlePeek(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	events, err := h.events.Peek(r.Context(), sessionID, 0)
	if err != nil {
		h.logger.Error("Failed to peek world events", "error", err, "session_id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to read world events")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"events": events}); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *WorldEventHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
