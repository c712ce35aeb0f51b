package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WorldEventQueue manages queued world-event prompts per session. Events
// wait here until the session's next turn picks them up.
type WorldEventQueue struct {
	client *Client
}

func NewWorldEventQueue(client *Client) *WorldEventQueue {
	return &WorldEventQueue{
		client: client,
	}
}

func eventKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("world-events:%s", sessionID.String())
}

// Enqueue adds a world event prompt to the end of the queue for a session
func (weq *WorldEventQueue) Enqueue(ctx context.Context, sessionID uuid.UUID, eventPrompt string) error {
	key := eventKey(sessionID)
	err := weq.client.rdb.RPush(ctx, key, eventPrompt).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue world event: %w", err)
	}
	return nil
}

// Dequeue removes and returns all queued world events for a session
func (weq *WorldEventQueue) Dequeue(ctx context.Context, sessionID uuid.UUID) ([]string, error) {
	key := eventKey(sessionID)

	events, err := weq.client.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to dequeue world events: %w", err)
	}
	if len(events) > 0 {
		if err := weq.client.rdb.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("failed to clear world event queue after dequeue: %w", err)
		}
	}
	return events, nil
}

// Peek returns up to limit world events without removing them. A limit of
// zero or less returns all.
func (weq *WorldEventQueue) Peek(ctx context.Context, sessionID uuid.UUID, limit int) ([]string, error) {
	key := eventKey(sessionID)

	end := int64(limit - 1)
	if limit <= 0 {
		end = -1
	}
	events, err := weq.client.rdb.LRange(ctx, key, 0, end).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to peek world events: %w", err)
	}
	return events, nil
}

// Clear removes all world events for a session
func (weq *WorldEventQueue) Clear(ctx context.Context, sessionID uuid.UUID) error {
	key := eventKey(sessionID)
	err := weq.client.rdb.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to clear world event queue: %w", err)
	}
	return nil
}

// Depth returns the number of world events queued for a session
func (weq *WorldEventQueue) Depth(ctx context.Context, sessionID uuid.UUID) (int, error) {
	key := eventKey(sessionID)
	count, err := weq.client.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
