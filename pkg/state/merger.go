package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jwebster45206/campaign-engine/pkg/actor"
	"github.com/jwebster45206/campaign-engine/pkg/creation"
	"github.com/jwebster45206/campaign-engine/pkg/relationship"
	"github.com/jwebster45206/campaign-engine/pkg/textfilter"
)

// MergePolicy selects how unknown fields in a proposed update are handled.
// Under both policies unknown fields never crash or abort the merge.
type MergePolicy int

const (
	// MergeLenient ignores unknown fields and logs them.
	MergeLenient MergePolicy = iota

	// MergeStrict rejects unknown fields and reports them to the caller.
	MergeStrict
)

// TrustEvent records a trust change applied to an NPC's edge toward the
// player during a merge. The turn pipeline uses these to trigger bounded
// relationship cascades, once per event.
type TrustEvent struct {
	NpcID  string
	Delta  int
	Reason string
}

// Merger applies a proposed update onto the session state. The merge is
// transactional at the session granularity: it works on a deep copy, so the
// input state is returned to the caller unchanged regardless of outcome.
type Merger struct {
	gs     *SessionState
	update ProposedUpdate
	policy MergePolicy
	logger *slog.Logger

	rejected    []FieldError
	trustEvents []TrustEvent
}

// NewMerger creates a merger for one proposed update.
func NewMerger(gs *SessionState, update ProposedUpdate, logger *slog.Logger) *Merger {
	return &Merger{
		gs:     gs,
		update: update,
		policy: MergeLenient,
		logger: logger,
	}
}

// WithPolicy sets the unknown-field policy.
// Returns the Merger for method chaining.
func (m *Merger) WithPolicy(policy MergePolicy) *Merger {
	m.policy = policy
	return m
}

// Rejected returns the fields rejected during Apply, with reasons.
func (m *Merger) Rejected() []FieldError {
	return m.rejected
}

// TrustEvents returns the player-facing trust changes applied during Apply.
func (m *Merger) TrustEvents() []TrustEvent {
	return m.trustEvents
}

// Apply merges the proposed update and returns the resulting state with all
// derived fields recomputed. Individual invalid fields are rejected or
// ignored per policy; only a failure to copy the state aborts.
func (m *Merger) Apply() (*SessionState, error) {
	work, err := m.gs.DeepCopy()
	if err != nil {
		return nil, fmt.Errorf("failed to copy session state: %w", err)
	}

	for key, val := range m.update {
		switch key {
		case "player_character_data":
			m.mergePC(work, val)
		case "npcs":
			m.mergeNPCs(work, val)
		case "custom_campaign_state":
			m.mergeCustom(work, val)
		case "world_time":
			m.mergeWorldTime(work, val)
		case "id", "campaign_config", "chat_history", "created_at", "updated_at":
			m.reject(key, ErrProtectedField)
		default:
			m.unknown(key)
		}
	}

	work.Recompute()
	return work, nil
}

// reject records a protected or malformed field. Rejections are always
// surfaced regardless of policy.
func (m *Merger) reject(path string, err error) {
	m.rejected = append(m.rejected, FieldError{Path: path, Err: err})
	if m.logger != nil {
		m.logger.Warn("Rejected update field", "path", path, "reason", err)
	}
}

// unknown handles a field not present in the schema per the configured
// policy.
func (m *Merger) unknown(path string) {
	if m.policy == MergeStrict {
		m.rejected = append(m.rejected, FieldError{Path: path, Err: ErrUnknownField})
	}
	if m.logger != nil {
		m.logger.Debug("Unknown update field", "path", path, "policy", m.policy)
	}
}

// Player character

// pcFields is the model-facing schema of the character sheet. deletable
// marks fields the delete sentinel may remove.
var pcFields = map[string]struct{ deletable bool }{
	"name":       {false},
	"pronouns":   {true},
	"concept":    {true},
	"class":      {false},
	"race":       {false},
	"level":      {false},
	"background": {true},
	"traits":     {true},
	"bonds":      {true},
	"flaws":      {true},
	"stats":      {false},
	"hp":         {false},
	"max_hp":     {false},
	"ac":         {false},
	"attributes": {true},
	"inventory":  {true},
}

// mergePC deep-merges a partial character update into the sheet. Sibling
// fields the update does not mention are preserved; a partial stats update
// cannot erase unrelated attributes.
func (m *Merger) mergePC(work *SessionState, val any) {
	fields, ok := asMap(val)
	if !ok {
		m.reject("player_character_data", ErrMalformedUpdate)
		return
	}

	sheet := actor.CharacterSheet{}
	if work.PC != nil && work.PC.Sheet != nil {
		sheet = *work.PC.Sheet
	}

	current := sheetToMap(&sheet)
	for key, fv := range fields {
		path := "player_character_data." + key
		meta, known := pcFields[key]
		if !known {
			m.unknown(path)
			continue
		}
		if isDelete(fv) {
			if !meta.deletable {
				m.reject(path, ErrProtectedField)
				continue
			}
			delete(current, key)
			continue
		}
		if key == "stats" || key == "attributes" {
			m.mergeNestedInts(current, key, fv, path)
			continue
		}
		current[key] = fv
	}

	merged, err := sheetFromMap(current)
	if err != nil {
		m.reject("player_character_data", fmt.Errorf("%w: %v", ErrMalformedUpdate, err))
		return
	}

	pc, err := actor.NewFromSheet(merged)
	if err != nil {
		m.reject("player_character_data", fmt.Errorf("%w: %v", ErrMalformedUpdate, err))
		return
	}
	work.PC = pc
}

// mergeNestedInts deep-merges an object of numeric fields (stats, skill
// attributes) key by key instead of replacing the whole object.
func (m *Merger) mergeNestedInts(current map[string]any, key string, fv any, path string) {
	patch, ok := asMap(fv)
	if !ok {
		m.reject(path, ErrMalformedUpdate)
		return
	}
	existing, _ := asMap(current[key])
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range patch {
		if isDelete(v) {
			delete(existing, k)
			continue
		}
		if _, ok := asNumber(v); !ok {
			m.reject(path+"."+k, ErrMalformedUpdate)
			continue
		}
		existing[k] = v
	}
	current[key] = existing
}

func sheetToMap(sheet *actor.CharacterSheet) map[string]any {
	data, _ := json.Marshal(sheet)
	out := make(map[string]any)
	_ = json.Unmarshal(data, &out)
	return out
}

func sheetFromMap(fields map[string]any) (*actor.CharacterSheet, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var sheet actor.CharacterSheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// NPCs

func (m *Merger) mergeNPCs(work *SessionState, val any) {
	npcs, ok := asMap(val)
	if !ok {
		m.reject("npcs", ErrMalformedUpdate)
		return
	}

	for key, nv := range npcs {
		path := "npcs." + key
		npc := work.EnsureNPC(key)
		if npc == nil {
			m.reject(path, ErrMalformedUpdate)
			continue
		}

		// NPCs are never deleted; the sentinel deactivates.
		if isDelete(nv) {
			npc.Active = false
			continue
		}

		fields, ok := asMap(nv)
		if !ok {
			m.reject(path, ErrMalformedUpdate)
			continue
		}
		m.mergeNPC(npc, fields, path)
	}
}

func (m *Merger) mergeNPC(npc *NpcRecord, fields map[string]any, path string) {
	for key, fv := range fields {
		fpath := path + "." + key
		switch key {
		case "id":
			// Ids are assigned once and never change.
			m.reject(fpath, ErrProtectedField)
		case "name":
			if name, ok := asString(fv); ok && !isDelete(fv) {
				npc.Name = name
			} else {
				m.reject(fpath, ErrMalformedUpdate)
			}
		case "active":
			if b, ok := asBool(fv); ok {
				npc.Active = b
			} else {
				m.reject(fpath, ErrMalformedUpdate)
			}
		case "allies", "enemies":
			list, ok := asStringList(fv)
			if !ok {
				if isDelete(fv) {
					list = nil
				} else {
					m.reject(fpath, ErrMalformedUpdate)
					continue
				}
			}
			ids := make([]string, 0, len(list))
			for _, name := range list {
				ids = append(ids, textfilter.CanonicalID(name))
			}
			if key == "allies" {
				npc.Allies = ids
			} else {
				npc.Enemies = ids
			}
		case "relationships":
			m.mergeRelationships(npc, fv, fpath)
		default:
			m.unknown(fpath)
		}
	}
}

func (m *Merger) mergeRelationships(npc *NpcRecord, val any, path string) {
	rels, ok := asMap(val)
	if !ok {
		m.reject(path, ErrMalformedUpdate)
		return
	}
	for target, ev := range rels {
		targetID := textfilter.CanonicalID(target)
		tpath := path + "." + targetID

		// Edges persist for the campaign's lifetime.
		if isDelete(ev) {
			m.reject(tpath, ErrProtectedField)
			continue
		}
		fields, ok := asMap(ev)
		if !ok {
			m.reject(tpath, ErrMalformedUpdate)
			continue
		}
		m.mergeEdge(npc, targetID, fields, tpath)
	}
}

func (m *Merger) mergeEdge(npc *NpcRecord, targetID string, fields map[string]any, path string) {
	edge := npc.EdgeTo(targetID)
	reason, _ := asString(fields["reason"])

	for key, fv := range fields {
		fpath := path + "." + key
		switch key {
		case "reason":
			// Consumed alongside trust changes.
		case "trust_level":
			if isDelete(fv) {
				m.reject(fpath, ErrProtectedField)
				continue
			}
			n, ok := asNumber(fv)
			if !ok {
				m.reject(fpath, ErrMalformedUpdate)
				continue
			}
			// Absolute overwrite, clamped after applying.
			target := relationship.ClampTrust(int(n))
			delta := target - edge.TrustLevel
			relationship.ApplyDelta(edge, delta, reason)
			m.recordTrust(npc.ID, targetID, delta, reason)
		case "trust_delta":
			n, ok := asNumber(fv)
			if !ok {
				m.reject(fpath, ErrMalformedUpdate)
				continue
			}
			before := edge.TrustLevel
			relationship.ApplyDelta(edge, int(n), reason)
			m.recordTrust(npc.ID, targetID, edge.TrustLevel-before, reason)
		case "disposition":
			// Derived from trust_level; never accepted as input.
			m.reject(fpath, ErrProtectedField)
		case "history":
			entries, ok := asStringList(fv)
			if !ok {
				m.reject(fpath, ErrMalformedUpdate)
				continue
			}
			// Append-only: the update contributes new entries and can
			// never truncate. Entries already present are skipped so
			// re-applying the same update is a no-op.
			for _, entry := range entries {
				if !slices.Contains(edge.History, entry) {
					edge.History = append(edge.History, entry)
				}
			}
		case "debts", "grievances":
			m.mergeStringSet(edge, key, fv, fpath)
		default:
			m.unknown(fpath)
		}
	}
}

// mergeStringSet merges debts or grievances. A list is a union; the delete
// sentinel is the explicit resolution event that clears the set.
func (m *Merger) mergeStringSet(edge *relationship.Edge, key string, fv any, path string) {
	set := &edge.Debts
	if key == "grievances" {
		set = &edge.Grievances
	}
	if isDelete(fv) {
		*set = nil
		return
	}
	entries, ok := asStringList(fv)
	if !ok {
		m.reject(path, ErrMalformedUpdate)
		return
	}
	for _, entry := range entries {
		if !slices.Contains(*set, entry) {
			*set = append(*set, entry)
		}
	}
}

func (m *Merger) recordTrust(npcID, targetID string, delta int, reason string) {
	if delta == 0 || targetID != PlayerID {
		return
	}
	m.trustEvents = append(m.trustEvents, TrustEvent{NpcID: npcID, Delta: delta, Reason: reason})
}

// Custom campaign state

func (m *Merger) mergeCustom(work *SessionState, val any) {
	fields, ok := asMap(val)
	if !ok {
		m.reject("custom_campaign_state", ErrMalformedUpdate)
		return
	}

	for key, fv := range fields {
		path := "custom_campaign_state." + key
		switch key {
		case "character_creation_in_progress":
			// Episode lifecycle is server-owned: episodes start via
			// Begin/BeginLevelUp and end only through the stage machine.
			// Accepting false here would unfreeze world time mid-episode.
			m.reject(path, ErrProtectedField)
		case "character_creation_stage":
			s, ok := asString(fv)
			if !ok {
				m.reject(path, ErrMalformedUpdate)
				continue
			}
			stage, err := creation.ParseStage(s)
			if err != nil {
				m.reject(path, fmt.Errorf("%w: %v", ErrMalformedUpdate, err))
				continue
			}
			// Stage proposals only apply within a running episode; a
			// completed episode stays complete until Begin/BeginLevelUp.
			if !work.Custom.Creation.InProgress {
				if m.logger != nil {
					m.logger.Debug("Ignoring stage proposal outside an episode", "proposed", stage)
				}
				continue
			}
			// Completion is decided by the stage machine from the
			// user's own words; a model-proposed complete is advisory
			// and dropped here.
			if stage == creation.StageComplete {
				if m.logger != nil {
					m.logger.Debug("Ignoring model-proposed completion stage")
				}
				continue
			}
			work.Custom.Creation.Stage = stage
		case "completed_at":
			m.reject(path, ErrProtectedField)
		case "flags":
			m.mergeFlagMap(work, fv, path)
		case "vars":
			m.mergeVarMap(work, fv, path)
		default:
			m.unknown(path)
		}
	}
}

func (m *Merger) mergeFlagMap(work *SessionState, fv any, path string) {
	patch, ok := asMap(fv)
	if !ok {
		m.reject(path, ErrMalformedUpdate)
		return
	}
	if work.Custom.Flags == nil {
		work.Custom.Flags = make(map[string]bool)
	}
	for k, v := range patch {
		if isDelete(v) {
			delete(work.Custom.Flags, k)
			continue
		}
		b, ok := asBool(v)
		if !ok {
			m.reject(path+"."+k, ErrMalformedUpdate)
			continue
		}
		work.Custom.Flags[k] = b
	}
}

func (m *Merger) mergeVarMap(work *SessionState, fv any, path string) {
	patch, ok := asMap(fv)
	if !ok {
		m.reject(path, ErrMalformedUpdate)
		return
	}
	if work.Custom.Vars == nil {
		work.Custom.Vars = make(map[string]string)
	}
	for k, v := range patch {
		if isDelete(v) {
			delete(work.Custom.Vars, k)
			continue
		}
		s, ok := asString(v)
		if !ok {
			m.reject(path+"."+k, ErrMalformedUpdate)
			continue
		}
		work.Custom.Vars[k] = s
	}
}

// World time

func (m *Merger) mergeWorldTime(work *SessionState, val any) {
	n, ok := asNumber(val)
	if !ok {
		m.reject("world_time", ErrMalformedUpdate)
		return
	}
	to := int64(n)
	if work.TimeFrozen() {
		if m.logger != nil {
			m.logger.Debug("World time frozen, ignoring advancement", "proposed", to)
		}
		return
	}
	if to < work.WorldTime {
		if m.logger != nil {
			m.logger.Warn("Ignoring backward world time", "current", work.WorldTime, "proposed", to)
		}
		return
	}
	work.AdvanceWorldTime(to)
}
