package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jwebster45206/campaign-engine/pkg/creation"
	"github.com/jwebster45206/campaign-engine/pkg/relationship"
)

func testSession() *SessionState {
	gs := NewSessionState(CampaignConfig{
		Name:        "Test Campaign",
		Ruleset:     "5e",
		TokenBudget: 8000,
	})
	return gs
}

func parseUpdate(t *testing.T, raw string) ProposedUpdate {
	t.Helper()
	update, err := ParseProposedUpdate(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("failed to parse update: %v", err)
	}
	return update
}

func TestParseProposedUpdate(t *testing.T) {
	t.Run("empty payload is a no-op", func(t *testing.T) {
		update, err := ParseProposedUpdate(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !update.IsEmpty() {
			t.Error("expected empty update")
		}
	})

	t.Run("non-object payload is malformed", func(t *testing.T) {
		_, err := ParseProposedUpdate(json.RawMessage(`["not", "an", "object"]`))
		if !errors.Is(err, ErrMalformedUpdate) {
			t.Errorf("expected ErrMalformedUpdate, got %v", err)
		}
	})
}

func TestMergerPartialCharacterUpdate(t *testing.T) {
	gs := testSession()

	update := parseUpdate(t, `{
		"player_character_data": {
			"name": "Sir Galahad",
			"class": "Paladin",
			"level": 1,
			"stats": {"strength": 16, "charisma": 14}
		}
	}`)
	merged, err := NewMerger(gs, update, nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.PC == nil || merged.PC.Sheet.Name != "Sir Galahad" {
		t.Fatalf("expected PC sheet to be created, got %+v", merged.PC)
	}

	// A later partial stats update must not erase unrelated fields.
	update2 := parseUpdate(t, `{
		"player_character_data": {
			"stats": {"dexterity": 12}
		}
	}`)
	merged2, err := NewMerger(merged, update2, nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sheet := merged2.PC.Sheet
	if sheet.Name != "Sir Galahad" || sheet.Class != "Paladin" {
		t.Errorf("sibling fields were erased: %+v", sheet)
	}
	if sheet.Stats.Strength != 16 || sheet.Stats.Dexterity != 12 {
		t.Errorf("stats should deep-merge, got %+v", sheet.Stats)
	}
}

func TestMergerDeleteSentinel(t *testing.T) {
	gs := testSession()
	seeded, err := NewMerger(gs, parseUpdate(t, `{
		"player_character_data": {"name": "Mira", "concept": "wandering bard", "level": 2}
	}`), nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("deletable field is removed", func(t *testing.T) {
		m := NewMerger(seeded, parseUpdate(t, `{
			"player_character_data": {"concept": "__delete__"}
		}`), nil)
		merged, err := m.Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.PC.Sheet.Concept != "" {
			t.Errorf("concept should be deleted, got %q", merged.PC.Sheet.Concept)
		}
		if merged.PC.Sheet.Name != "Mira" {
			t.Error("unrelated fields must survive a delete")
		}
	})

	t.Run("core identity field rejects the sentinel", func(t *testing.T) {
		m := NewMerger(seeded, parseUpdate(t, `{
			"player_character_data": {"name": "__delete__"}
		}`), nil)
		merged, err := m.Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.PC.Sheet.Name != "Mira" {
			t.Errorf("name must survive, got %q", merged.PC.Sheet.Name)
		}
		if len(m.Rejected()) != 1 || !errors.Is(m.Rejected()[0].Err, ErrProtectedField) {
			t.Errorf("expected one protected-field rejection, got %v", m.Rejected())
		}
	})
}

func TestMergerProtectedFields(t *testing.T) {
	gs := testSession()
	originalName := gs.Config.Name

	update := parseUpdate(t, `{
		"campaign_config": {"name": "Hijacked"},
		"chat_history": [],
		"id": "other"
	}`)
	m := NewMerger(gs, update, nil)
	merged, err := m.Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if merged.Config.Name != originalName {
		t.Errorf("campaign config must be immutable, got %q", merged.Config.Name)
	}
	if len(m.Rejected()) != 3 {
		t.Errorf("expected 3 rejections, got %d: %v", len(m.Rejected()), m.Rejected())
	}
	for _, fe := range m.Rejected() {
		if !errors.Is(fe.Err, ErrProtectedField) {
			t.Errorf("expected protected field error for %s, got %v", fe.Path, fe.Err)
		}
	}
}

func TestMergerUnknownFieldPolicy(t *testing.T) {
	update := parseUpdate(t, `{"weather": "raining"}`)

	t.Run("lenient ignores", func(t *testing.T) {
		m := NewMerger(testSession(), update, nil)
		if _, err := m.Apply(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Rejected()) != 0 {
			t.Errorf("lenient policy should not reject unknown fields, got %v", m.Rejected())
		}
	})

	t.Run("strict rejects", func(t *testing.T) {
		m := NewMerger(testSession(), update, nil).WithPolicy(MergeStrict)
		if _, err := m.Apply(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Rejected()) != 1 || !errors.Is(m.Rejected()[0].Err, ErrUnknownField) {
			t.Errorf("expected one unknown-field rejection, got %v", m.Rejected())
		}
	})
}

func TestMergerTrustDelta(t *testing.T) {
	gs := testSession()

	update := parseUpdate(t, `{
		"npcs": {
			"Madame Vastra": {
				"relationships": {
					"player": {"trust_delta": 3, "reason": "returned the stolen locket"}
				}
			}
		}
	}`)
	m := NewMerger(gs, update, nil)
	merged, err := m.Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	npc, ok := merged.NPCs["madame_vastra"]
	if !ok {
		t.Fatalf("expected NPC to be created under canonical id, have %v", merged.NPCs)
	}
	edge := npc.Relationships[PlayerID]
	if edge == nil || edge.TrustLevel != 3 {
		t.Fatalf("expected trust 3, got %+v", edge)
	}
	if edge.Disposition != relationship.DispositionFriendly {
		t.Errorf("expected friendly disposition, got %s", edge.Disposition)
	}
	if len(edge.History) != 1 || edge.History[0] != "returned the stolen locket" {
		t.Errorf("expected reason in history, got %v", edge.History)
	}

	events := m.TrustEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 trust event, got %d", len(events))
	}
	if events[0].NpcID != "madame_vastra" || events[0].Delta != 3 {
		t.Errorf("unexpected trust event: %+v", events[0])
	}
}

func TestMergerTrustClamp(t *testing.T) {
	gs := testSession()
	update := parseUpdate(t, `{
		"npcs": {
			"strax": {
				"relationships": {
					"player": {"trust_delta": 99, "reason": "absurd delta"}
				}
			}
		}
	}`)
	m := NewMerger(gs, update, nil)
	merged, err := m.Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	edge := merged.NPCs["strax"].Relationships[PlayerID]
	if edge.TrustLevel != relationship.MaxTrust {
		t.Errorf("trust should clamp to %d, got %d", relationship.MaxTrust, edge.TrustLevel)
	}
	// The recorded event carries the effective delta, not the proposed one.
	if events := m.TrustEvents(); len(events) != 1 || events[0].Delta != relationship.MaxTrust {
		t.Errorf("expected effective delta %d, got %v", relationship.MaxTrust, events)
	}
}

func TestMergerDispositionNeverSettable(t *testing.T) {
	gs := testSession()
	update := parseUpdate(t, `{
		"npcs": {
			"jenny": {
				"relationships": {
					"player": {"disposition": "devoted"}
				}
			}
		}
	}`)
	m := NewMerger(gs, update, nil)
	merged, err := m.Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	edge := merged.NPCs["jenny"].Relationships[PlayerID]
	if edge.Disposition != relationship.DispositionNeutral {
		t.Errorf("disposition must be derived, got %s", edge.Disposition)
	}
	if len(m.Rejected()) != 1 || !errors.Is(m.Rejected()[0].Err, ErrProtectedField) {
		t.Errorf("expected protected-field rejection for disposition, got %v", m.Rejected())
	}
}

func TestMergerHistoryAppendOnlyIdempotent(t *testing.T) {
	gs := testSession()
	update := parseUpdate(t, `{
		"npcs": {
			"vex": {
				"relationships": {
					"player": {"history": ["met at the docks"]}
				}
			}
		}
	}`)

	merged, err := NewMerger(gs, update, nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Re-applying the same update must not duplicate entries.
	merged2, err := NewMerger(merged, update, nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edge := merged2.NPCs["vex"].Relationships[PlayerID]
	if len(edge.History) != 1 {
		t.Errorf("history should be idempotent under re-apply, got %v", edge.History)
	}
}

func TestMergerDebtsResolution(t *testing.T) {
	gs := testSession()
	seeded, err := NewMerger(gs, parseUpdate(t, `{
		"npcs": {
			"flint": {
				"relationships": {
					"player": {"debts": ["owes 50 gold"]}
				}
			}
		}
	}`), nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := seeded.NPCs["flint"].Relationships[PlayerID].Debts; len(got) != 1 {
		t.Fatalf("expected seeded debt, got %v", got)
	}

	resolved, err := NewMerger(seeded, parseUpdate(t, `{
		"npcs": {
			"flint": {
				"relationships": {
					"player": {"debts": "__delete__"}
				}
			}
		}
	}`), nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resolved.NPCs["flint"].Relationships[PlayerID].Debts; len(got) != 0 {
		t.Errorf("debts should clear on explicit resolution, got %v", got)
	}
}

func TestMergerNpcDeactivation(t *testing.T) {
	gs := testSession()
	gs.EnsureNPC("old guard")

	merged, err := NewMerger(gs, parseUpdate(t, `{
		"npcs": {"old_guard": "__delete__"}
	}`), nil).Apply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	npc, ok := merged.NPCs["old_guard"]
	if !ok {
		t.Fatal("NPC records are never deleted, only deactivated")
	}
	if npc.Active {
		t.Error("expected NPC to be deactivated")
	}
}

func TestMergerWorldTime(t *testing.T) {
	t.Run("frozen during creation", func(t *testing.T) {
		gs := testSession() // creation in progress from NewSessionState
		merged, err := NewMerger(gs, parseUpdate(t, `{"world_time": 120}`), nil).Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.WorldTime != 0 {
			t.Errorf("world time must not advance while frozen, got %d", merged.WorldTime)
		}
	})

	t.Run("advances after creation", func(t *testing.T) {
		gs := testSession()
		gs.Custom.Creation.InProgress = false
		gs.Custom.Creation.Stage = creation.StageComplete
		gs.WorldTime = 60

		merged, err := NewMerger(gs, parseUpdate(t, `{"world_time": 120}`), nil).Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.WorldTime != 120 {
			t.Errorf("expected world time 120, got %d", merged.WorldTime)
		}
	})

	t.Run("never runs backward", func(t *testing.T) {
		gs := testSession()
		gs.Custom.Creation.InProgress = false
		gs.Custom.Creation.Stage = creation.StageComplete
		gs.WorldTime = 300

		merged, err := NewMerger(gs, parseUpdate(t, `{"world_time": 100}`), nil).Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.WorldTime != 300 {
			t.Errorf("world time must be monotonic, got %d", merged.WorldTime)
		}
	})
}

func TestMergerCreationStage(t *testing.T) {
	t.Run("valid stage accepted", func(t *testing.T) {
		gs := testSession()
		merged, err := NewMerger(gs, parseUpdate(t, `{
			"custom_campaign_state": {"character_creation_stage": "mechanics"}
		}`), nil).Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.Custom.Creation.Stage != creation.StageMechanics {
			t.Errorf("expected mechanics, got %s", merged.Custom.Creation.Stage)
		}
	})

	t.Run("model-proposed complete is dropped", func(t *testing.T) {
		gs := testSession()
		merged, err := NewMerger(gs, parseUpdate(t, `{
			"custom_campaign_state": {"character_creation_stage": "complete"}
		}`), nil).Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.Custom.Creation.Stage == creation.StageComplete {
			t.Error("proposed completion must never reach the state directly")
		}
		if !merged.Custom.Creation.InProgress {
			t.Error("creation should still be in progress")
		}
	})

	t.Run("episode flag is protected", func(t *testing.T) {
		gs := testSession()
		gs.Custom.Creation.Stage = creation.StageReview
		m := NewMerger(gs, parseUpdate(t, `{
			"custom_campaign_state": {"character_creation_in_progress": false},
			"world_time": 120
		}`), nil)
		merged, err := m.Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !merged.Custom.Creation.InProgress {
			t.Error("a proposed update must not end an episode")
		}
		if !merged.TimeFrozen() {
			t.Error("time must stay frozen for the whole episode")
		}
		if merged.WorldTime != 0 {
			t.Errorf("world time must not advance mid-episode, got %d", merged.WorldTime)
		}
		if len(m.Rejected()) != 1 {
			t.Errorf("expected rejection for the episode flag, got %v", m.Rejected())
		}
	})

	t.Run("complete is sticky between episodes", func(t *testing.T) {
		gs := testSession()
		gs.Custom.Creation.InProgress = false
		gs.Custom.Creation.Stage = creation.StageComplete

		merged, err := NewMerger(gs, parseUpdate(t, `{
			"custom_campaign_state": {"character_creation_stage": "concept"}
		}`), nil).Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if merged.Custom.Creation.Stage != creation.StageComplete {
			t.Errorf("stage proposals outside an episode must be ignored, got %s", merged.Custom.Creation.Stage)
		}
		if merged.Custom.Creation.InProgress {
			t.Error("ignored proposal must not restart the episode")
		}
	})

	t.Run("unknown stage rejected", func(t *testing.T) {
		gs := testSession()
		m := NewMerger(gs, parseUpdate(t, `{
			"custom_campaign_state": {"character_creation_stage": "epilogue"}
		}`), nil)
		if _, err := m.Apply(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Rejected()) != 1 {
			t.Errorf("expected rejection for unknown stage, got %v", m.Rejected())
		}
	})
}

func TestMergerDoesNotMutateOriginal(t *testing.T) {
	gs := testSession()
	update := parseUpdate(t, `{
		"player_character_data": {"name": "Kara"},
		"npcs": {"barkeep": {"relationships": {"player": {"trust_delta": 2}}}}
	}`)

	if _, err := NewMerger(gs, update, nil).Apply(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gs.PC != nil {
		t.Error("original state gained a PC; merge must work on a copy")
	}
	if len(gs.NPCs) != 0 {
		t.Error("original state gained NPCs; merge must work on a copy")
	}
}

func TestEnsureNPCCanonicalizes(t *testing.T) {
	gs := testSession()
	a := gs.EnsureNPC("Madame Vastra")
	b := gs.EnsureNPC("madame  vastra")
	if a != b {
		t.Error("name variants must resolve to the same NPC record")
	}
	if a.ID != "madame_vastra" {
		t.Errorf("expected canonical id, got %q", a.ID)
	}
}

func TestToGameStateBlock(t *testing.T) {
	gs := testSession()
	npc := gs.EnsureNPC("jenny")
	relationship.ApplyDelta(npc.EdgeTo(PlayerID), 5, "saved her life")

	block := ToGameStateBlock(gs)
	if !block.TimeFrozen {
		t.Error("expected time frozen during creation")
	}
	view, ok := block.NPCs["jenny"]
	if !ok {
		t.Fatal("expected NPC view in block")
	}
	if view.TrustLevel != 5 || view.Disposition != relationship.DispositionTrusted {
		t.Errorf("unexpected NPC view: %+v", view)
	}
	if !view.Modifiers.SharesSecrets {
		t.Error("trusted NPCs should share secrets in the view")
	}
}
