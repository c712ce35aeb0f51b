package state

import (
	"github.com/jwebster45206/campaign-engine/pkg/actor"
	"github.com/jwebster45206/campaign-engine/pkg/relationship"
)

// NpcView is the model-facing slice of an NPC record. Dispositions and
// behavior modifiers are included; raw trust arithmetic stays internal.
type NpcView struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Active      bool                     `json:"active"`
	TrustLevel  int                      `json:"trust_level"`
	Disposition relationship.Disposition `json:"disposition"`
	Modifiers   relationship.Modifiers   `json:"modifiers"`
	Debts       []string                 `json:"debts,omitempty"`
	Grievances  []string                 `json:"grievances,omitempty"`
}

// GameStateBlock is the serialized SessionState subset embedded in the
// instruction bundle each turn. It is a snapshot; the model never holds a
// reference to the live state.
type GameStateBlock struct {
	CustomCampaignState struct {
		CharacterCreationInProgress bool              `json:"character_creation_in_progress"`
		CharacterCreationStage      string            `json:"character_creation_stage,omitempty"`
		Flags                       map[string]bool   `json:"flags,omitempty"`
		Vars                        map[string]string `json:"vars,omitempty"`
	} `json:"custom_campaign_state"`
	PlayerCharacterData *actor.CharacterSheet `json:"player_character_data,omitempty"`
	NPCs                map[string]NpcView    `json:"npcs,omitempty"`
	WorldTime           int64                 `json:"world_time"`
	TimeFrozen          bool                  `json:"time_frozen"`
}

// ToGameStateBlock builds the model-facing snapshot of a session.
func ToGameStateBlock(gs *SessionState) *GameStateBlock {
	block := &GameStateBlock{
		WorldTime:  gs.WorldTime,
		TimeFrozen: gs.TimeFrozen(),
	}
	block.CustomCampaignState.CharacterCreationInProgress = gs.Custom.Creation.InProgress
	block.CustomCampaignState.CharacterCreationStage = string(gs.Custom.Creation.Stage)
	block.CustomCampaignState.Flags = gs.Custom.Flags
	block.CustomCampaignState.Vars = gs.Custom.Vars

	if gs.PC != nil {
		block.PlayerCharacterData = gs.PC.Sheet
	}

	if len(gs.NPCs) > 0 {
		block.NPCs = make(map[string]NpcView, len(gs.NPCs))
		for id, npc := range gs.NPCs {
			view := NpcView{
				ID:     npc.ID,
				Name:   npc.Name,
				Active: npc.Active,
			}
			if edge, ok := npc.Relationships[PlayerID]; ok && edge != nil {
				view.TrustLevel = edge.TrustLevel
				view.Disposition = edge.Disposition
				view.Modifiers = relationship.ModifiersFor(edge.Disposition)
				view.Debts = edge.Debts
				view.Grievances = edge.Grievances
			} else {
				view.Disposition = relationship.DispositionNeutral
				view.Modifiers = relationship.ModifiersFor(relationship.DispositionNeutral)
			}
			block.NPCs[id] = view
		}
	}

	return block
}
