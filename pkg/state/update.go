package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DeleteSentinel marks a field for removal in a proposed update. Only
// optional, removable fields honor it; core identity fields reject it.
const DeleteSentinel = "__delete__"

var (
	// ErrMalformedUpdate means the proposed update was not parseable at
	// all. The entire update is discarded and the session is unchanged.
	ErrMalformedUpdate = errors.New("malformed state update")

	// ErrUnknownField marks a field that does not exist in the session
	// schema. The field is rejected; the rest of the merge proceeds.
	ErrUnknownField = errors.New("unknown field")

	// ErrProtectedField marks an attempt to overwrite or delete a field
	// the model is not allowed to touch.
	ErrProtectedField = errors.New("protected field")
)

// FieldError records a single rejected field and why.
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ProposedUpdate is the sparse, untrusted structural diff the model proposes
// each turn. Keys mirror the session's model-facing paths and only carry
// fields the model intends to change.
type ProposedUpdate map[string]any

// ParseProposedUpdate decodes the raw state_updates payload. A missing
// payload is a valid no-op; anything that is not a JSON object fails with
// ErrMalformedUpdate.
func ParseProposedUpdate(raw json.RawMessage) (ProposedUpdate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var u ProposedUpdate
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}
	return u, nil
}

// IsEmpty checks if the update proposes no changes.
func (u ProposedUpdate) IsEmpty() bool {
	return len(u) == 0
}

func isDelete(v any) bool {
	s, ok := v.(string)
	return ok && s == DeleteSentinel
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringList(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
