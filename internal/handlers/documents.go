package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/campaign-engine/pkg/library"
)

// DocumentHandler exposes the instruction document library read-only.
// Documents are authored and versioned externally; the engine never edits
// them at runtime.
type DocumentHandler struct {
	store  *library.Store
	logger *slog.Logger
}

func NewDocumentHandler(store *library.Store, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:  store,
		logger: logger,
	}
}

// DocumentSummary is the listing view of a document, without the body
type DocumentSummary struct {
	ID      string           `json:"id"`
	Version string           `json:"version,omitempty"`
	Title   string           `json:"title,omitempty"`
	Tier    library.Tier     `json:"tier"`
	Mode    library.LoadMode `json:"mode,omitempty"`
	Tokens  int              `json:"tokens"`
}

// ServeHTTP handles HTTP requests for documents
// Routes:
// GET /v1/documents       - List all documents (metadata only)
// GET /v1/documents/{id}  - Read one document including its body
func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for documents endpoint", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents"), "/")
	if id == "" {
		h.handleList(w)
		return
	}
	h.handleRead(w, id)
}

func (h *DocumentHandler) handleList(w http.ResponseWriter) {
	docs := h.store.List(library.Filter{})
	summaries := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, DocumentSummary{
			ID:      d.ID,
			Version: d.Version,
			Title:   d.Title,
			Tier:    d.Tier,
			Mode:    d.Mode,
			Tokens:  d.Tokens,
		})
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		h.logger.Error("Failed to encode document list", "error", err)
	}
}

func (h *DocumentHandler) handleRead(w http.ResponseWriter, id string) {
	doc, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		h.logger.Error("Failed to read document", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "Failed to read document")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		h.logger.Error("Failed to encode document", "error", err)
	}
}

func (h *DocumentHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
