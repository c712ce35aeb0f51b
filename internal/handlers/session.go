package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/storage"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionHandler struct {
	storage storage.Storage
	cfg     *config.Config
	logger  *slog.Logger
}

func NewSessionHandler(storage storage.Storage, cfg *config.Config, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		storage: storage,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreateSessionRequest defines the request body for creating a new session
type CreateSessionRequest struct {
	Name           string   `json:"name"`
	Ruleset        string   `json:"ruleset,omitempty"`
	EnabledSystems []string `json:"enabled_systems,omitempty"`
	TokenBudget    int      `json:"token_budget,omitempty"`
}

// ServeHTTP handles HTTP requests for session operations
// Routes:
// POST /v1/session                 - Create new session (begins character creation)
// GET /v1/session/{id}             - Read session by ID
// DELETE /v1/session/{id}          - Delete session by ID
// POST /v1/session/{id}/levelup    - Begin a level-up episode
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/session")
	path = strings.Trim(path, "/")

	var sessionID uuid.UUID
	var action string
	var err error

	if path != "" {
		parts := strings.SplitN(path, "/", 2)
		sessionID, err = uuid.Parse(parts[0])
		if err != nil {
			h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
			h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		if len(parts) == 2 {
			action = parts[1]
		}
	}

	switch {
	case r.Method == http.MethodPost && sessionID == uuid.Nil:
		h.handleCreate(w, r)

	case r.Method == http.MethodPost && action == "levelup":
		h.handleLevelUp(w, r, sessionID)

	case r.Method == http.MethodGet:
		if sessionID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "Session ID is required for GET requests")
			return
		}
		h.handleRead(w, r, sessionID)

	case r.Method == http.MethodDelete:
		if sessionID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "Session ID is required for DELETE requests")
			return
		}
		h.handleDelete(w, r, sessionID)

	default:
		h.logger.Warn("Method not allowed for session endpoint", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET, DELETE")
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new session")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name field is required")
		return
	}

	budget := req.TokenBudget
	if budget <= 0 {
		budget = h.cfg.TokenBudget
	}

	gs := state.NewSessionState(state.CampaignConfig{
		Name:           req.Name,
		Ruleset:        req.Ruleset,
		EnabledSystems: req.EnabledSystems,
		TokenBudget:    budget,
	})

	if err := h.storage.SaveSession(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save new session", "error", err, "id", gs.ID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Debug("Session created successfully", "id", gs.ID.String())
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(gs); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	gs, err := h.storage.LoadSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	if gs == nil {
		h.logger.Warn("Session not found", "id", sessionID.String())
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(gs); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

// handleLevelUp starts a level-up episode. World time freezes until the
// episode completes.
func (h *SessionHandler) handleLevelUp(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	gs, err := h.storage.LoadSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	if gs == nil {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if gs.Custom.Creation.InProgress {
		h.writeError(w, http.StatusConflict, "A creation episode is already in progress")
		return
	}

	gs.Custom.Creation.BeginLevelUp()

	if err := h.storage.SaveSession(r.Context(), sessionID, gs); err != nil {
		h.logger.Error("Failed to save session", "error", err, "id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Info("Level-up episode started", "id", sessionID.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(gs); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("Failed to delete session", "error", err, "id", sessionID.String())
		h.writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Debug("Session deleted successfully", "id", sessionID.String())
	w.WriteHeader(http.StatusNoContent)
}
