package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/campaign-engine/pkg/state"
)

// RedisStorage implements the Storage interface using Redis. Sessions are
// stored without a TTL; a session lives until it is deleted.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// NewRedisStorageWithClient wraps an existing Redis client. Used by tests.
func NewRedisStorageWithClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
	}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) SaveSession(ctx context.Context, id uuid.UUID, gs *state.SessionState) error {
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal session", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	cmd := r.client.Set(ctx, sessionKey(id), string(data), 0)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to save session", "uuid", id, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error) {
	cmd := r.client.Get(ctx, sessionKey(id))
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			r.logger.Warn("Session not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	data := cmd.Val()
	if data == "" {
		r.logger.Warn("Session not found", "uuid", id)
		return nil, nil
	}

	var gs state.SessionState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		r.logger.Error("Failed to unmarshal session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &gs, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	cmd := r.client.Del(ctx, sessionKey(id))
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to delete session", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
