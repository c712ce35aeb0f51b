package queue

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/campaign-engine/pkg/queue"
)

func setupTestClient(t *testing.T) *Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return &Client{
		rdb:    redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func TestTurnQueueFIFO(t *testing.T) {
	client := setupTestClient(t)
	tq := NewTurnQueue(client)
	ctx := context.Background()

	first := &queue.Request{
		RequestID:  "req-1",
		Type:       queue.RequestTypeTurn,
		SessionID:  uuid.New(),
		Message:    "first",
		EnqueuedAt: time.Now().UTC(),
	}
	second := &queue.Request{
		RequestID:  "req-2",
		Type:       queue.RequestTypeTurn,
		SessionID:  uuid.New(),
		Message:    "second",
		EnqueuedAt: time.Now().UTC(),
	}

	if err := tq.EnqueueRequest(ctx, first); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	if err := tq.EnqueueRequest(ctx, second); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	depth, err := tq.RequestQueueDepth(ctx)
	if err != nil {
		t.Fatalf("failed to get depth: %v", err)
	}
	if depth != 2 {
		t.Errorf("expected depth 2, got %d", depth)
	}

	got, err := tq.DequeueRequest(ctx)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if got == nil || got.RequestID != "req-1" {
		t.Errorf("expected req-1 first, got %+v", got)
	}

	got, err = tq.DequeueRequest(ctx)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if got == nil || got.RequestID != "req-2" {
		t.Errorf("expected req-2 second, got %+v", got)
	}
}

func TestTurnQueueEmptyDequeue(t *testing.T) {
	client := setupTestClient(t)
	tq := NewTurnQueue(client)

	got, err := tq.DequeueRequest(context.Background())
	if err != nil {
		t.Fatalf("empty queue must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil from empty queue, got %+v", got)
	}
}

func TestTurnQueueBlockingDequeue(t *testing.T) {
	client := setupTestClient(t)
	tq := NewTurnQueue(client)
	ctx := context.Background()

	req := &queue.Request{
		RequestID:  "req-blocking",
		Type:       queue.RequestTypeTurn,
		SessionID:  uuid.New(),
		Message:    "hello",
		EnqueuedAt: time.Now().UTC(),
	}
	if err := tq.EnqueueRequest(ctx, req); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	got, err := tq.BlockingDequeueRequest(ctx)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if got.RequestID != "req-blocking" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestWorldEventQueue(t *testing.T) {
	client := setupTestClient(t)
	weq := NewWorldEventQueue(client)
	ctx := context.Background()
	sessionID := uuid.New()

	if err := weq.Enqueue(ctx, sessionID, "A storm rolls in."); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	if err := weq.Enqueue(ctx, sessionID, "The bells toll at midnight."); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	depth, err := weq.Depth(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to get depth: %v", err)
	}
	if depth != 2 {
		t.Errorf("expected depth 2, got %d", depth)
	}

	peeked, err := weq.Peek(ctx, sessionID, 1)
	if err != nil {
		t.Fatalf("failed to peek: %v", err)
	}
	if len(peeked) != 1 || peeked[0] != "A storm rolls in." {
		t.Errorf("unexpected peek result: %v", peeked)
	}
	if depth, _ := weq.Depth(ctx, sessionID); depth != 2 {
		t.Errorf("peek must not consume, depth is %d", depth)
	}

	events, err := weq.Dequeue(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %v", events)
	}
	if events[0] != "A storm rolls in." || events[1] != "The bells toll at midnight." {
		t.Errorf("events out of order: %v", events)
	}

	if depth, _ := weq.Depth(ctx, sessionID); depth != 0 {
		t.Errorf("dequeue should drain the queue, depth is %d", depth)
	}
}

func TestWorldEventQueueIsolatedPerSession(t *testing.T) {
	client := setupTestClient(t)
	weq := NewWorldEventQueue(client)
	ctx := context.Background()

	sessionA := uuid.New()
	sessionB := uuid.New()

	if err := weq.Enqueue(ctx, sessionA, "only for A"); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	events, err := weq.Dequeue(ctx, sessionB)
	if err != nil {
		t.Fatalf("failed to dequeue: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("session B should have no events, got %v", events)
	}
}

func TestWorldEventQueueClear(t *testing.T) {
	client := setupTestClient(t)
	weq := NewWorldEventQueue(client)
	ctx := context.Background()
	sessionID := uuid.New()

	if err := weq.Enqueue(ctx, sessionID, "doomed event"); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	if err := weq.Clear(ctx, sessionID); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if depth, _ := weq.Depth(ctx, sessionID); depth != 0 {
		t.Errorf("expected empty queue after clear, depth is %d", depth)
	}
}
