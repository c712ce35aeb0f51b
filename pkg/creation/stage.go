package creation

import (
	"fmt"
	"time"
)

// Stage is the current phase of the character-creation / level-up machine.
type Stage string

const (
	StageConcept     Stage = "concept"
	StageMechanics   Stage = "mechanics"
	StagePersonality Stage = "personality"
	StageReview      Stage = "review"
	StageLevelUp     Stage = "level_up"
	StageComplete    Stage = "complete"
)

// creationOrder is the forward progression for an initial creation episode.
var creationOrder = map[Stage]int{
	StageConcept:     0,
	StageMechanics:   1,
	StagePersonality: 2,
	StageReview:      3,
	StageLevelUp:     4,
	StageComplete:    5,
}

// ParseStage validates a stage string from an untrusted source.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if _, ok := creationOrder[st]; !ok {
		return "", fmt.Errorf("unknown creation stage: %q", s)
	}
	return st, nil
}

// Progress tracks one creation or level-up episode on the session. The zero
// value means creation has never started (the implicit inactive state).
type Progress struct {
	InProgress  bool       `json:"character_creation_in_progress"`
	Stage       Stage      `json:"character_creation_stage,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // set once per episode
}

// TimeFrozen reports whether world-time progression is suspended. Time is
// frozen for the whole episode, derived strictly from InProgress.
func (p *Progress) TimeFrozen() bool {
	return p.InProgress
}

// Begin starts a new character-creation episode at the concept stage.
func (p *Progress) Begin() {
	p.InProgress = true
	p.Stage = StageConcept
	p.CompletedAt = nil
}

// BeginLevelUp starts a leveling episode. Reachable after a completed
// creation; complete is terminal per episode, not per campaign.
func (p *Progress) BeginLevelUp() {
	p.InProgress = true
	p.Stage = StageLevelUp
	p.CompletedAt = nil
}

// Complete marks the episode finished. CompletedAt is set once and kept on
// repeat calls.
func (p *Progress) Complete(now time.Time) {
	p.InProgress = false
	p.Stage = StageComplete
	if p.CompletedAt == nil {
		t := now.UTC()
		p.CompletedAt = &t
	}
}

// Normalize enforces the stage/in-progress invariants after an untrusted
// merge: complete implies not in progress, and an in-progress episode with no
// stage starts at concept.
func (p *Progress) Normalize() {
	if p.Stage == StageComplete {
		p.InProgress = false
	}
	if p.InProgress && p.Stage == "" {
		p.Stage = StageConcept
	}
}
