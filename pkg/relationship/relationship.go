package relationship

// Trust is an integer scale from MinTrust to MaxTrust. Values outside the
// range are clamped, never rejected, because the source of trust deltas is a
// fallible external model.
const (
	MinTrust = -10
	MaxTrust = 10
)

// Disposition is the qualitative tier derived from a trust level. It is
// always computed from TrustLevel and never accepted as independent input.
type Disposition string

const (
	DispositionHostile      Disposition = "hostile"      // <= -7
	DispositionAntagonistic Disposition = "antagonistic" // -6 .. -4
	DispositionCold         Disposition = "cold"         // -3 .. -1
	DispositionNeutral      Disposition = "neutral"      // 0
	DispositionFriendly     Disposition = "friendly"     // 1 .. 3
	DispositionTrusted      Disposition = "trusted"      // 4 .. 6
	DispositionDevoted      Disposition = "devoted"      // 7 .. 9
	DispositionBonded       Disposition = "bonded"       // 10
)

// Edge is the relationship record between two actors (player to NPC, or NPC
// to NPC). History is append-only; debts and grievances are removable only by
// explicit resolution.
type Edge struct {
	TrustLevel  int         `json:"trust_level"`
	Disposition Disposition `json:"disposition"`
	History     []string    `json:"history,omitempty"`
	Debts       []string    `json:"debts,omitempty"`
	Grievances  []string    `json:"grievances,omitempty"`
}

// NewEdge returns a neutral edge.
func NewEdge() *Edge {
	return &Edge{
		TrustLevel:  0,
		Disposition: DispositionNeutral,
	}
}

// ClampTrust bounds a trust value to the legal range.
func ClampTrust(v int) int {
	if v < MinTrust {
		return MinTrust
	}
	if v > MaxTrust {
		return MaxTrust
	}
	return v
}

// DispositionFor returns the tier for a trust level. The tiers are a fixed,
// non-overlapping partition of [MinTrust, MaxTrust].
func DispositionFor(trust int) Disposition {
	trust = ClampTrust(trust)
	switch {
	case trust <= -7:
		return DispositionHostile
	case trust <= -4:
		return DispositionAntagonistic
	case trust <= -1:
		return DispositionCold
	case trust == 0:
		return DispositionNeutral
	case trust <= 3:
		return DispositionFriendly
	case trust <= 6:
		return DispositionTrusted
	case trust <= 9:
		return DispositionDevoted
	default:
		return DispositionBonded
	}
}

// ApplyDelta adds delta to the edge's trust level, clamps the result,
// appends reason to history when the delta is nonzero, and recomputes the
// disposition tier.
func ApplyDelta(e *Edge, delta int, reason string) {
	if e == nil {
		return
	}
	if delta != 0 {
		e.TrustLevel = ClampTrust(e.TrustLevel + delta)
		if reason != "" {
			e.History = append(e.History, reason)
		}
	}
	e.Disposition = DispositionFor(e.TrustLevel)
}

// Recompute re-derives the disposition from the (clamped) trust level.
// Called after merges so the edge never carries a stale derived field.
func (e *Edge) Recompute() {
	if e == nil {
		return
	}
	e.TrustLevel = ClampTrust(e.TrustLevel)
	e.Disposition = DispositionFor(e.TrustLevel)
}
