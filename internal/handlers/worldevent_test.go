package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcqueue "github.com/jwebster45206/campaign-engine/internal/services/queue"
	pkgqueue "github.com/jwebster45206/campaign-engine/pkg/queue"
)

func newWorldEventHandler(t *testing.T) (*WorldEventHandler, *svcqueue.TurnQueue) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := svcqueue.NewClient("redis://"+mr.Addr(), handlerLogger())
	require.NoError(t, err)

	turnQueue := svcqueue.NewTurnQueue(client)
	return NewWorldEventHandler(svcqueue.NewWorldEventQueue(client), turnQueue, handlerLogger()), turnQueue
}

func TestWorldEventHandlerEnqueueAndPeek(t *testing.T) {
	handler, _ := newWorldEventHandler(t)
	sessionID := uuid.New()

	body, _ := json.Marshal(WorldEventRequest{
		SessionID: sessionID,
		Prompt:    "A dragon circles overhead.",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/event", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/event/"+sessionID.String(), nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []string `json:"events"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "A dragon circles overhead.", resp.Events[0])
}

func TestWorldEventHandlerImmediate(t *testing.T) {
	handler, turnQueue := newWorldEventHandler(t)
	sessionID := uuid.New()

	body, _ := json.Marshal(WorldEventRequest{
		SessionID: sessionID,
		Prompt:    "The volcano erupts.",
		Immediate: true,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/event", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp EnqueueResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, sessionID.String(), resp.SessionID)

	// The event goes to the turn queue, not the per-session event queue.
	queued, err := turnQueue.DequeueRequest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, queued)
	assert.Equal(t, pkgqueue.RequestTypeWorldEvent, queued.Type)
	assert.Equal(t, "The volcano erupts.", queued.EventPrompt)
	assert.Equal(t, sessionID, queued.SessionID)
}

func TestWorldEventHandlerImmediateNotConfigured(t *testing.T) {
	handler, _ := newWorldEventHandler(t)
	handler.turns = nil

	body, _ := json.Marshal(WorldEventRequest{
		SessionID: uuid.New(),
		Prompt:    "The volcano erupts.",
		Immediate: true,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/event", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestWorldEventHandlerValidation(t *testing.T) {
	handler, _ := newWorldEventHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid`},
		{"missing session", `{"prompt": "something happens"}`},
		{"missing prompt", `{"session_id": "` + uuid.New().String() + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/event", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestWorldEventHandlerInvalidSessionOnPeek(t *testing.T) {
	handler, _ := newWorldEventHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/event/not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
