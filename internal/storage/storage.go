package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for session persistence
type Storage interface {
	HealthChecker
	Closer

	// SaveSession saves a session state under its UUID
	SaveSession(ctx context.Context, id uuid.UUID, gs *state.SessionState) error

	// LoadSession retrieves a session state by UUID
	// Returns nil if the session doesn't exist
	LoadSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error)

	// DeleteSession removes a session state by UUID
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
