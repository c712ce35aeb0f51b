package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/campaign-engine/pkg/chat"
)

// MockModelService is a mock implementation of ModelService for testing
type MockModelService struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	TurnFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ModelOutput, error)

	// Track calls for testing
	InitModelCalls []string
	TurnCalls      []TurnCall

	mu sync.Mutex // protects all fields above
}

type TurnCall struct {
	Messages []chat.ChatMessage
}

var _ ModelService = (*MockModelService)(nil)

// NewMockModelService creates a new mock model service
func NewMockModelService() *MockModelService {
	return &MockModelService{
		InitModelCalls: make([]string, 0),
		TurnCalls:      make([]TurnCall, 0),
	}
}

// InitModel mocks model initialization
func (m *MockModelService) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}

	// Default behavior - success
	return nil
}

// Turn mocks turn generation
func (m *MockModelService) Turn(ctx context.Context, messages []chat.ChatMessage) (*chat.ModelOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TurnCalls = append(m.TurnCalls, TurnCall{Messages: messages})

	if m.TurnFunc != nil {
		return m.TurnFunc(ctx, messages)
	}

	// Default behavior - narrative only, no state updates
	return &chat.ModelOutput{Narrative: "Mock narrative"}, nil
}

// Reset clears all call tracking
func (m *MockModelService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.TurnCalls = make([]TurnCall, 0)
}

// SetTurnError sets up the mock to return an error on Turn
func (m *MockModelService) SetTurnError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ModelOutput, error) {
		return nil, err
	}
}

// SetTurnOutput sets up the mock to return a fixed output on Turn
func (m *MockModelService) SetTurnOutput(out *chat.ModelOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ModelOutput, error) {
		return out, nil
	}
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockModelService) GetCalls() ([]string, []TurnCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	turnCalls := make([]TurnCall, len(m.TurnCalls))
	copy(turnCalls, m.TurnCalls)

	return initCalls, turnCalls
}
