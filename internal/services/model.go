package services

import (
	"context"
	"errors"

	"github.com/jwebster45206/campaign-engine/pkg/chat"
)

// ErrModelUnavailable means the model backend could not serve the request.
// Callers may retry; the turn fails without touching session state.
var ErrModelUnavailable = errors.New("model backend unavailable")

// ModelService defines the interface for interacting with the model API
type ModelService interface {
	// InitModel initializes the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Turn generates one narrator turn from the instruction bundle and
	// parses the structured output.
	Turn(ctx context.Context, messages []chat.ChatMessage) (*chat.ModelOutput, error)
}
