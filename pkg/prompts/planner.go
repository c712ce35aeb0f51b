package prompts

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/campaign-engine/pkg/library"
)

// ErrBudgetExceeded means the foundational (tier-1) documents alone do not
// fit the token budget. Authority material is never silently trimmed, so the
// turn fails instead.
var ErrBudgetExceeded = errors.New("token budget exceeded by foundational documents")

// Planner selects and orders instruction documents for one turn under a
// token budget.
type Planner struct {
	store *library.Store
}

// NewPlanner creates a planner over a document library.
func NewPlanner(store *library.Store) *Planner {
	return &Planner{store: store}
}

// Plan walks tiers 1 through 4 and admits eligible documents in declared
// order until the budget would be violated. Tier-1 documents are always
// included; if they alone exceed the budget the plan fails with
// ErrBudgetExceeded and no documents are returned.
func (p *Planner) Plan(ctx library.Context, budget int) ([]library.Document, error) {
	eligible := p.store.List(library.Filter{Context: &ctx})

	var tier1Cost int
	for _, d := range eligible {
		if d.Tier == library.TierFoundational {
			tier1Cost += d.Tokens
		}
	}
	if tier1Cost > budget {
		return nil, fmt.Errorf("%w: tier-1 costs %d tokens, budget is %d", ErrBudgetExceeded, tier1Cost, budget)
	}

	selected := make([]library.Document, 0, len(eligible))
	remaining := budget
	admitting := true
	for _, d := range eligible {
		if d.Tier == library.TierFoundational {
			selected = append(selected, d)
			remaining -= d.Tokens
			continue
		}
		if !admitting {
			continue
		}
		if d.Tokens > remaining {
			// Budget pressure: stop admitting lower-precedence
			// documents from here on.
			admitting = false
			continue
		}
		selected = append(selected, d)
		remaining -= d.Tokens
	}

	return selected, nil
}
