package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/campaign-engine/pkg/actor"
	"github.com/jwebster45206/campaign-engine/pkg/chat"
	"github.com/jwebster45206/campaign-engine/pkg/library"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

// DefaultHistoryLimit is the chat history window included in a bundle.
const DefaultHistoryLimit = 20

// Bundle is the immutable instruction bundle for exactly one turn.
type Bundle struct {
	Messages    []chat.ChatMessage
	DocumentIDs []string
	TokenCost   int // planned document token cost, not the full bundle
}

// Builder composes the instruction bundle using a fluent interface. It
// separates composition from session state management and never mutates the
// session or the library.
type Builder struct {
	gs           *state.SessionState
	planner      *Planner
	budget       int
	userMessage  string
	userRole     string
	debug        string
	worldEvents  []string
	historyLimit int
}

// New creates a new bundle builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		userRole:     chat.ChatRoleUser,
	}
}

// WithSession sets the session whose snapshot and history feed the bundle.
func (b *Builder) WithSession(gs *state.SessionState) *Builder {
	b.gs = gs
	return b
}

// WithPlanner sets the token budget planner.
func (b *Builder) WithPlanner(p *Planner) *Builder {
	b.planner = p
	return b
}

// WithBudget sets the document token budget for this turn.
func (b *Builder) WithBudget(budget int) *Builder {
	b.budget = budget
	return b
}

// WithUserMessage sets the player's message and role.
func (b *Builder) WithUserMessage(message, role string) *Builder {
	b.userMessage = message
	b.userRole = role
	return b
}

// WithDebugInstructions adds operator debug instructions as a dynamic
// fragment.
func (b *Builder) WithDebugInstructions(instructions string) *Builder {
	b.debug = instructions
	return b
}

// WithWorldEvents adds queued world content fragments for this turn.
func (b *Builder) WithWorldEvents(events []string) *Builder {
	b.worldEvents = events
	return b
}

// WithHistoryLimit sets the chat history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build selects documents under the budget and assembles the final message
// array: planned documents in tier order, then dynamically generated
// fragments, then the game state snapshot, then windowed history and the
// user message. Later material has lower precedence but carries the
// situational detail.
func (b *Builder) Build() (*Bundle, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("session is required")
	}
	if b.planner == nil {
		return nil, fmt.Errorf("planner is required")
	}

	ctx := library.Context{
		EnabledSystems: b.gs.Config.EnabledSystems,
		Stage:          b.gs.Custom.Creation.Stage,
		CreationActive: b.gs.Custom.Creation.InProgress,
	}
	docs, err := b.planner.Plan(ctx, b.budget)
	if err != nil {
		return nil, fmt.Errorf("error planning documents: %w", err)
	}

	bundle := &Bundle{
		Messages:    make([]chat.ChatMessage, 0, len(b.gs.ChatHistory)+3),
		DocumentIDs: make([]string, 0, len(docs)),
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.Body)
		bundle.DocumentIDs = append(bundle.DocumentIDs, doc.ID)
		bundle.TokenCost += doc.Tokens
	}

	// Dynamic fragments follow the document stack.
	if pcSummary := actor.BuildPrompt(b.gs.PC); pcSummary != "" {
		sb.WriteString("\n\n" + pcSummary)
	}
	if b.gs.Custom.Creation.InProgress {
		sb.WriteString("\n\n" + CreationModeReminder)
	}
	if b.debug != "" {
		sb.WriteString("\n\n" + fmt.Sprintf(DebugInstructionsTemplate, b.debug))
	}
	for _, event := range b.worldEvents {
		sb.WriteString("\n\n" + WorldEventPrefix + event)
	}
	sb.WriteString("\n\n" + StateUpdateInstructions)

	// Game state snapshot last: situational detail, lowest precedence.
	stateJSON, err := json.Marshal(state.ToGameStateBlock(b.gs))
	if err != nil {
		return nil, fmt.Errorf("error serializing game state: %w", err)
	}
	sb.WriteString("\n\n" + fmt.Sprintf(GameStateTemplate, stateJSON))

	bundle.Messages = append(bundle.Messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: sb.String(),
	})

	b.addHistory(bundle)

	if b.userMessage != "" {
		bundle.Messages = append(bundle.Messages, chat.ChatMessage{
			Role:    b.userRole,
			Content: b.userMessage,
		})
	}

	return bundle, nil
}

// addHistory appends the windowed chat history.
func (b *Builder) addHistory(bundle *Bundle) {
	history := b.gs.ChatHistory
	if len(history) == 0 {
		return
	}
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	bundle.Messages = append(bundle.Messages, history...)
}
