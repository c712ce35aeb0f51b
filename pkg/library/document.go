package library

import (
	"slices"

	"github.com/jwebster45206/campaign-engine/pkg/creation"
)

// Tier is the precedence rank of an instruction document. Lower tiers carry
// more authority: tier 1 is never trimmed under budget pressure, tier 4 is
// dropped first.
type Tier int

const (
	TierFoundational Tier = 1 // state management, core ruleset
	TierIntegration  Tier = 2 // mechanics and subsystem integration
	TierNarrative    Tier = 3 // narrative and style guidance
	TierReference    Tier = 4 // reference material, first to go
)

// LoadMode controls when a document is a selection candidate.
type LoadMode string

const (
	// LoadAlways documents are candidates every turn.
	LoadAlways LoadMode = "always"

	// LoadConditional documents require an enabled campaign subsystem.
	LoadConditional LoadMode = "conditional"

	// LoadContext documents require a matching creation stage.
	LoadContext LoadMode = "context"
)

// Document is one versioned instruction blob with its selection metadata.
// The body is opaque text; the engine never parses it.
type Document struct {
	ID      string   `json:"id"`
	Version string   `json:"version,omitempty"`
	Title   string   `json:"title,omitempty"`
	Tier    Tier     `json:"tier"`
	Mode    LoadMode `json:"mode,omitempty"`

	// Tokens is the document's approximate token cost, maintained by the
	// author alongside the body.
	Tokens int `json:"tokens"`

	// Order is the declared position within the document's tier.
	Order int `json:"order,omitempty"`

	// RequiresSystem names the campaign subsystem that must be enabled
	// for a conditional document.
	RequiresSystem string `json:"requires_system,omitempty"`

	// Stages lists the creation stages during which a context document
	// is a candidate.
	Stages []creation.Stage `json:"stages,omitempty"`

	Body string `json:"body"`
}

// Context is the turn context the planner selects against.
type Context struct {
	EnabledSystems []string
	Stage          creation.Stage
	CreationActive bool
}

// EligibleFor reports whether the document is a selection candidate in the
// given context. Tier never affects eligibility, only ordering and trimming.
func (d Document) EligibleFor(ctx Context) bool {
	switch d.Mode {
	case LoadConditional:
		return slices.Contains(ctx.EnabledSystems, d.RequiresSystem)
	case LoadContext:
		if !ctx.CreationActive {
			return false
		}
		return len(d.Stages) == 0 || slices.Contains(d.Stages, ctx.Stage)
	default:
		return true
	}
}
