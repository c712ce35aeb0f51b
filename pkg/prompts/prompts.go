package prompts

// StateUpdateInstructions tells the model how to report state changes. It is
// generated material appended after the document stack, so it carries lower
// precedence than the authored instruction documents but is always present.
const StateUpdateInstructions = `### State updates
After your narrative, output a single JSON object:
{"narrative": "...", "state_updates": {...}, "tool_requests": [...], "character_creation_complete": false}

state_updates is a sparse diff against the game state. Include ONLY fields that changed this turn. Supported paths:
- player_character_data: partial character sheet fields (name, class, race, level, stats, traits, bonds, flaws, background, inventory, ...)
- npcs.<name>.relationships.player: {"trust_delta": n, "reason": "..."} for trust changes, or {"debts": [...], "grievances": [...], "history": [...]}
- custom_campaign_state: {"character_creation_stage": "...", "flags": {...}, "vars": {...}}
- world_time: in-world minutes elapsed (integer, never decreases)

Rules:
- Use "` + "__delete__" + `" as a field value to remove an optional field (debts, grievances, background). Identity fields cannot be deleted.
- Never set "disposition"; it is derived from trust_level by the engine.
- trust_delta values are small integers. Major events are rarely more than +/-3.
- Do not invent state paths beyond those listed.
- character_creation_complete is advisory. Creation actually completes only when the user says so in their own words.`

// CreationModeReminder is appended while a creation or level-up episode is
// active. World time is frozen for the whole episode.
const CreationModeReminder = `### Character creation mode
A character creation or level-up episode is in progress. World time is frozen; no in-world events occur until the episode completes. Guide the user through the current stage only, and do not begin the adventure. Starting a review is not finishing it: treat "I'm ready to start" during review as the beginning of review, never as completion.`

// DebugInstructionsTemplate wraps operator-supplied debug instructions when
// a session runs with debugging enabled.
const DebugInstructionsTemplate = `### Debug instructions
%s`

// WorldEventPrefix marks queued world content injected into the bundle.
// The model must weave the event into the narrative without echoing the
// marker.
const WorldEventPrefix = "WORLD EVENT: "

// GameStateTemplate carries the serialized session snapshot. Loaded last:
// situational detail, lowest precedence.
const GameStateTemplate = "### GAME STATE\nThe following JSON is the authoritative current state of this session.\n```json\n%s\n```"
