package state

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/campaign-engine/pkg/relationship"
)

// PlayerID is the reserved relationship target id for the player character.
const PlayerID = "player"

// NpcRecord is a non-player character known to the session. Records are
// created lazily on first reference and live for the campaign's lifetime;
// deactivation replaces deletion so ids are never reused.
type NpcRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`

	Allies  []string `json:"allies,omitempty"`
	Enemies []string `json:"enemies,omitempty"`

	// Relationships maps target id (PlayerID or another NPC's id) to the
	// edge describing this NPC's stance toward the target.
	Relationships map[string]*relationship.Edge `json:"relationships,omitempty"`
}

// EdgeTo returns this NPC's edge toward a target, creating a neutral edge on
// first use.
func (n *NpcRecord) EdgeTo(targetID string) *relationship.Edge {
	if n.Relationships == nil {
		n.Relationships = make(map[string]*relationship.Edge)
	}
	edge, ok := n.Relationships[targetID]
	if !ok {
		edge = relationship.NewEdge()
		n.Relationships[targetID] = edge
	}
	return edge
}

// NpcRegistry maps canonical NPC id to record.
type NpcRegistry map[string]*NpcRecord

// UnmarshalJSON allows NpcRegistry to accept either a map or an array of
// names, since older session snapshots stored NPCs as a plain list.
func (m *NpcRegistry) UnmarshalJSON(data []byte) error {
	var asMap map[string]*NpcRecord
	if err := json.Unmarshal(data, &asMap); err == nil {
		*m = asMap
		return nil
	}
	var asArray []string
	if err := json.Unmarshal(data, &asArray); err == nil {
		result := make(map[string]*NpcRecord)
		for _, name := range asArray {
			result[name] = &NpcRecord{ID: name, Name: name, Active: true}
		}
		*m = result
		return nil
	}
	return fmt.Errorf("npcs: not a map or array: %s", string(data))
}
