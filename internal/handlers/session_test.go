package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/storage"
	"github.com/jwebster45206/campaign-engine/pkg/creation"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

func handlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newSessionHandler() (*SessionHandler, *storage.MockStorage) {
	st := storage.NewMockStorage()
	cfg := &config.Config{TokenBudget: 8000}
	return NewSessionHandler(st, cfg, handlerLogger()), st
}

func TestSessionHandlerCreate(t *testing.T) {
	handler, _ := newSessionHandler()

	body, _ := json.Marshal(CreateSessionRequest{
		Name:    "The Lost Mine",
		Ruleset: "5e",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var gs state.SessionState
	require.NoError(t, json.NewDecoder(w.Body).Decode(&gs))
	assert.NotEqual(t, uuid.Nil, gs.ID)
	assert.Equal(t, "The Lost Mine", gs.Config.Name)
	assert.Equal(t, 8000, gs.Config.TokenBudget, "budget should default from config")
	assert.True(t, gs.Custom.Creation.InProgress, "new sessions begin character creation")
	assert.Equal(t, creation.StageConcept, gs.Custom.Creation.Stage)
}

func TestSessionHandlerCreateMissingName(t *testing.T) {
	handler, _ := newSessionHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerCreateInvalidJSON(t *testing.T) {
	handler, _ := newSessionHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerRead(t *testing.T) {
	handler, st := newSessionHandler()

	gs := state.NewSessionState(state.CampaignConfig{Name: "Stored Campaign"})
	require.NoError(t, st.SaveSession(context.Background(), gs.ID, gs))

	req := httptest.NewRequest(http.MethodGet, "/v1/session/"+gs.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var loaded state.SessionState
	require.NoError(t, json.NewDecoder(w.Body).Decode(&loaded))
	assert.Equal(t, gs.ID, loaded.ID)
	assert.Equal(t, "Stored Campaign", loaded.Config.Name)
}

func TestSessionHandlerReadNotFound(t *testing.T) {
	handler, _ := newSessionHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/session/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandlerInvalidID(t *testing.T) {
	handler, _ := newSessionHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/session/not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerDelete(t *testing.T) {
	handler, st := newSessionHandler()

	gs := state.NewSessionState(state.CampaignConfig{Name: "Doomed"})
	require.NoError(t, st.SaveSession(context.Background(), gs.ID, gs))

	req := httptest.NewRequest(http.MethodDelete, "/v1/session/"+gs.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	loaded, err := st.LoadSession(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionHandlerLevelUp(t *testing.T) {
	handler, st := newSessionHandler()

	gs := state.NewSessionState(state.CampaignConfig{Name: "Veterans"})
	gs.Custom.Creation.Complete(gs.CreatedAt)
	require.NoError(t, st.SaveSession(context.Background(), gs.ID, gs))

	req := httptest.NewRequest(http.MethodPost, "/v1/session/"+gs.ID.String()+"/levelup", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var updated state.SessionState
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.True(t, updated.Custom.Creation.InProgress)
	assert.Equal(t, creation.StageLevelUp, updated.Custom.Creation.Stage)
	assert.True(t, updated.TimeFrozen(), "level-up freezes world time")
}

func TestSessionHandlerLevelUpConflict(t *testing.T) {
	handler, st := newSessionHandler()

	// Fresh session: creation episode already in progress.
	gs := state.NewSessionState(state.CampaignConfig{Name: "Rookies"})
	require.NoError(t, st.SaveSession(context.Background(), gs.ID, gs))

	req := httptest.NewRequest(http.MethodPost, "/v1/session/"+gs.ID.String()+"/levelup", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandlerMethodNotAllowed(t *testing.T) {
	handler, _ := newSessionHandler()

	req := httptest.NewRequest(http.MethodPut, "/v1/session/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
