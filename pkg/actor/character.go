package actor

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/jwebster45206/d20"
)

// Stats5e represents the six core D&D 5e ability scores, filled in during
// the mechanics stage of character creation.
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// CharacterSheet is the serializable player character, assembled across the
// creation stages: concept fields first, mechanics next, personality last.
// It is the only part of the session the player directly authors.
type CharacterSheet struct {
	Name       string `json:"name,omitempty"`
	Pronouns   string `json:"pronouns,omitempty"`
	Concept    string `json:"concept,omitempty"` // one-line character concept
	Class      string `json:"class,omitempty"`
	Race       string `json:"race,omitempty"`
	Level      int    `json:"level,omitempty"`
	Background string `json:"background,omitempty"`

	// Personality-stage fields
	Traits []string `json:"traits,omitempty"`
	Bonds  []string `json:"bonds,omitempty"`
	Flaws  []string `json:"flaws,omitempty"`

	// Mechanics-stage fields
	Stats      Stats5e        `json:"stats,omitempty"`
	HP         int            `json:"hp,omitempty"`
	MaxHP      int            `json:"max_hp,omitempty"`
	AC         int            `json:"ac,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"` // skills, proficiencies
	Inventory  []string       `json:"inventory,omitempty"`
}

// PlayerCharacter is the runtime representation of the player character.
// The Actor is rebuilt from the sheet whenever the sheet is loaded.
type PlayerCharacter struct {
	Sheet *CharacterSheet
	Actor *d20.Actor
}

// NewFromSheet builds a PlayerCharacter with its d20.Actor from a sheet.
// Sheets mid-creation may have zero stats; the actor is still built so the
// rest of the engine never branches on creation progress.
func NewFromSheet(sheet *CharacterSheet) (*PlayerCharacter, error) {
	if sheet == nil {
		return nil, fmt.Errorf("sheet cannot be nil")
	}

	allAttrs := sheet.Stats.ToAttributes()
	maps.Copy(allAttrs, sheet.Attributes)

	actor, err := d20.NewActor(idForSheet(sheet)).
		WithHP(sheet.MaxHP).
		WithAC(sheet.AC).
		WithAttributes(allAttrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if sheet.HP != sheet.MaxHP && sheet.HP > 0 {
		if err := actor.SetHP(sheet.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	return &PlayerCharacter{Sheet: sheet, Actor: actor}, nil
}

func idForSheet(sheet *CharacterSheet) string {
	if sheet.Name != "" {
		return strings.ToLower(strings.ReplaceAll(sheet.Name, " ", "_"))
	}
	return "pc"
}

// MarshalJSON serializes the current sheet. Runtime HP is read back from the
// Actor so damage taken during play survives persistence.
func (pc *PlayerCharacter) MarshalJSON() ([]byte, error) {
	if pc == nil || pc.Sheet == nil {
		return []byte("null"), nil
	}
	sheet := *pc.Sheet
	if pc.Actor != nil {
		sheet.HP = pc.Actor.HP()
		sheet.MaxHP = pc.Actor.MaxHP()
		sheet.AC = pc.Actor.AC()
	}
	return json.Marshal(sheet)
}

// UnmarshalJSON reconstructs the PlayerCharacter and rebuilds its Actor.
func (pc *PlayerCharacter) UnmarshalJSON(data []byte) error {
	var sheet CharacterSheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return fmt.Errorf("failed to unmarshal character sheet: %w", err)
	}

	rebuilt, err := NewFromSheet(&sheet)
	if err != nil {
		return fmt.Errorf("failed to rebuild actor: %w", err)
	}

	pc.Sheet = rebuilt.Sheet
	pc.Actor = rebuilt.Actor
	return nil
}

// BuildPrompt constructs the player character section of the instruction
// bundle. Returns an empty string for a nil character.
//
// Example output:
// The user is controlling: Sir Galahad (he/him), Level 5 Human Paladin. A
// disgraced knight seeking redemption.
func BuildPrompt(pc *PlayerCharacter) string {
	if pc == nil || pc.Sheet == nil || pc.Sheet.Name == "" {
		return ""
	}
	sheet := pc.Sheet
	sb := strings.Builder{}
	sb.WriteString("The user is controlling: ")
	sb.WriteString(sheet.Name)
	if sheet.Pronouns != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", sheet.Pronouns))
	}
	summaryParts := []string{}
	if sheet.Level > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Level %d", sheet.Level))
	}
	if sheet.Race != "" {
		summaryParts = append(summaryParts, sheet.Race)
	}
	if sheet.Class != "" {
		summaryParts = append(summaryParts, sheet.Class)
	}
	if len(summaryParts) > 0 {
		sb.WriteString(", " + strings.Join(summaryParts, " "))
	}
	if sheet.Concept != "" {
		sb.WriteString(". " + sheet.Concept)
	}
	return sb.String()
}
