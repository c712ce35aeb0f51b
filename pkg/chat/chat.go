package chat

import (
	"fmt"

	"github.com/google/uuid"
)

// TurnRequest represents one player turn submitted to the campaign-engine api.
type TurnRequest struct {
	SessionID uuid.UUID `json:"session_id"` // Unique ID for the campaign session
	Message   string    `json:"message"`
}

// TurnResponse represents the outcome of one processed turn.
// Narrative is always safe to show the user; when Inconsistent is true the
// model's proposed state update was discarded and the narrative may not match
// the authoritative state.
type TurnResponse struct {
	SessionID    uuid.UUID     `json:"session_id,omitempty"`
	Narrative    string        `json:"narrative,omitempty"`
	Stage        string        `json:"stage,omitempty"`
	TimeFrozen   bool          `json:"time_frozen"`
	Inconsistent bool          `json:"inconsistent,omitempty"`
	ToolRequests []ToolRequest `json:"tool_requests,omitempty"`
	ChatHistory  []ChatMessage `json:"chat_history,omitempty"`
	Error        string        `json:"error,omitempty"`
}

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"    // Instruction material
)

// ChatMessage represents a single message in the instruction bundle or
// conversation history sent to the model.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

func (tr *TurnRequest) Validate() error {
	if tr.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if tr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}
