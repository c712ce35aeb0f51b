package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/campaign-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*state.SessionState
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID]*state.SessionState),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on save with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession mocks saving a session
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, gs *state.SessionState) error {
	if gs == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[id] = gs
	return nil
}

// LoadSession mocks loading a session
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gs, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return gs, nil
}

// DeleteSession mocks deleting a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
