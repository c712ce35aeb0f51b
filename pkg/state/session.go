package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/actor"
	"github.com/jwebster45206/campaign-engine/pkg/chat"
	"github.com/jwebster45206/campaign-engine/pkg/creation"
	"github.com/jwebster45206/campaign-engine/pkg/relationship"
	"github.com/jwebster45206/campaign-engine/pkg/textfilter"
)

// CampaignConfig is the immutable campaign configuration captured when the
// session is created. The merger refuses updates to it.
type CampaignConfig struct {
	Name           string   `json:"name"`
	Ruleset        string   `json:"ruleset,omitempty"`
	EnabledSystems []string `json:"enabled_systems,omitempty"` // optional subsystems gating conditional documents
	TokenBudget    int      `json:"token_budget,omitempty"`
}

// CustomCampaignState carries per-campaign mutable flags alongside the
// creation episode progress.
type CustomCampaignState struct {
	Creation creation.Progress `json:"creation"`
	Flags    map[string]bool   `json:"flags,omitempty"`
	Vars     map[string]string `json:"vars,omitempty"`
}

// SessionState is the authoritative state of one campaign session. It is
// owned exclusively by the orchestration core; the model only ever sees a
// serialized snapshot.
type SessionState struct {
	ID     uuid.UUID      `json:"id"`
	Config CampaignConfig `json:"campaign_config"`

	PC     *actor.PlayerCharacter `json:"player_character_data,omitempty"`
	NPCs   NpcRegistry            `json:"npcs,omitempty"`
	Custom CustomCampaignState    `json:"custom_campaign_state"`

	// WorldTime is in-world minutes elapsed. Monotonically non-decreasing,
	// and frozen for the duration of a creation or level-up episode.
	WorldTime int64 `json:"world_time"`

	ChatHistory []chat.ChatMessage `json:"chat_history,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewSessionState creates a session for a campaign. Character creation
// starts immediately: the first turns of a campaign are the concept stage.
func NewSessionState(cfg CampaignConfig) *SessionState {
	gs := &SessionState{
		ID:          uuid.New(),
		Config:      cfg,
		NPCs:        make(NpcRegistry),
		ChatHistory: make([]chat.ChatMessage, 0),
		CreatedAt:   time.Now().UTC(),
	}
	gs.Custom.Creation.Begin()
	return gs
}

// DeepCopy returns an independent copy of the session state. The merge path
// operates on a copy so a failed merge leaves the original untouched.
func (gs *SessionState) DeepCopy() (*SessionState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	var cp SessionState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state copy: %w", err)
	}
	return &cp, nil
}

// EnsureNPC resolves a name or id to the NPC record, creating one on first
// reference. Ids are canonical snake_case, assigned once and never reused;
// records are never deleted, only deactivated.
func (gs *SessionState) EnsureNPC(nameOrID string) *NpcRecord {
	id := textfilter.CanonicalID(nameOrID)
	if id == "" {
		return nil
	}
	if gs.NPCs == nil {
		gs.NPCs = make(NpcRegistry)
	}
	if npc, ok := gs.NPCs[id]; ok {
		return npc
	}
	npc := &NpcRecord{
		ID:     id,
		Name:   textfilter.DisplayName(id),
		Active: true,
	}
	gs.NPCs[id] = npc
	return npc
}

// AdvanceWorldTime moves world time forward. Advancement is suppressed while
// a creation or level-up episode has time frozen, and negative movement is
// ignored so time never runs backward.
func (gs *SessionState) AdvanceWorldTime(to int64) {
	if gs.Custom.Creation.TimeFrozen() {
		return
	}
	if to > gs.WorldTime {
		gs.WorldTime = to
	}
}

// TimeFrozen reports whether world-time progression is suspended.
func (gs *SessionState) TimeFrozen() bool {
	return gs.Custom.Creation.TimeFrozen()
}

// Recompute re-derives every derived field: disposition tiers on all edges
// and the creation stage invariants. The merger calls this before returning,
// so callers never observe stale derived state.
func (gs *SessionState) Recompute() {
	for _, npc := range gs.NPCs {
		for _, edge := range npc.Relationships {
			edge.Recompute()
		}
	}
	gs.Custom.Creation.Normalize()
}

// Relationship graph view, consumed by the relationship cascade.

// EdgeToPlayer returns the NPC's edge toward the player, creating a neutral
// edge on first use.
func (gs *SessionState) EdgeToPlayer(npcID string) *relationship.Edge {
	npc := gs.EnsureNPC(npcID)
	if npc == nil {
		return relationship.NewEdge()
	}
	return npc.EdgeTo(PlayerID)
}

// Allies returns the ids of NPCs allied with the given NPC.
func (gs *SessionState) Allies(npcID string) []string {
	if npc, ok := gs.NPCs[textfilter.CanonicalID(npcID)]; ok {
		return npc.Allies
	}
	return nil
}

// Enemies returns the ids of NPCs hostile to the given NPC.
func (gs *SessionState) Enemies(npcID string) []string {
	if npc, ok := gs.NPCs[textfilter.CanonicalID(npcID)]; ok {
		return npc.Enemies
	}
	return nil
}
