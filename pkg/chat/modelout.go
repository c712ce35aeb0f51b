package chat

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedOutput indicates the model emitted something that looked like a
// structured payload but could not be parsed. The narrative portion is still
// usable; any proposed state update is lost.
var ErrMalformedOutput = errors.New("malformed model output")

// ToolRequest is a model-requested tool invocation. Tool execution happens
// outside the engine; requests are passed through in order.
type ToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ModelOutput is the structured payload the model returns each turn.
// All fields are optional and untrusted. StateUpdates is kept raw here;
// the state merger owns its validation.
type ModelOutput struct {
	Narrative     string          `json:"narrative,omitempty"`
	StateUpdates  json.RawMessage `json:"state_updates,omitempty"`
	PlanningBlock json.RawMessage `json:"planning_block,omitempty"`
	ToolRequests  []ToolRequest   `json:"tool_requests,omitempty"`

	// Advisory only. The authoritative completion signal is the merged
	// creation stage, never this flag.
	CharacterCreationComplete *bool `json:"character_creation_complete,omitempty"`
}

// ParseModelOutput extracts the structured payload from raw model text.
// Models sometimes wrap the JSON in code fences or surround it with prose,
// and sometimes ignore the output instructions entirely. Plain text with no
// JSON object is treated as pure narrative, not an error. Text that contains
// an object which fails to parse returns a narrative-only output along with
// ErrMalformedOutput so the caller can flag the turn.
func ParseModelOutput(text string) (*ModelOutput, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ModelOutput{}, nil
	}

	candidate := stripCodeFence(trimmed)

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		// No object at all: the whole text is narrative.
		return &ModelOutput{Narrative: trimmed}, nil
	}

	var out ModelOutput
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &out); err != nil {
		return &ModelOutput{Narrative: trimmed}, ErrMalformedOutput
	}

	// A parseable object that carries none of the known fields is most
	// likely prose with an incidental brace pair.
	if out.Narrative == "" && out.StateUpdates == nil && out.PlanningBlock == nil &&
		len(out.ToolRequests) == 0 && out.CharacterCreationComplete == nil {
		return &ModelOutput{Narrative: trimmed}, nil
	}

	return &out, nil
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
