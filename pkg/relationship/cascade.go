package relationship

// Graph is the minimal view of the NPC registry the cascade needs. The
// session state implements it; the engine never sees the full registry.
type Graph interface {
	// EdgeToPlayer returns the NPC's edge toward the player, creating a
	// neutral edge if none exists yet.
	EdgeToPlayer(npcID string) *Edge

	// Allies returns the ids of NPCs allied with the given NPC.
	Allies(npcID string) []string

	// Enemies returns the ids of NPCs hostile to the given NPC.
	Enemies(npcID string) []string
}

// CascadeDelta maps a triggering trust delta to the bounded echo applied to
// allied edges. The echo is a fixed small value between 1 and 3 in magnitude
// regardless of how large the triggering delta was, so a chain of big swings
// can never amplify through the graph.
func CascadeDelta(delta int) int {
	if delta == 0 {
		return 0
	}
	mag := delta
	sign := 1
	if mag < 0 {
		mag = -mag
		sign = -1
	}
	switch {
	case mag <= 3:
		return sign * 1
	case mag <= 6:
		return sign * 2
	default:
		return sign * 3
	}
}

// Cascade propagates a trust delta from a source NPC to its allies and
// enemies. Allies receive the reduced echo with the same sign; enemies
// receive the inverse. The cascade is applied exactly once per triggering
// event and never follows the ally graph transitively, which guarantees
// termination.
func Cascade(g Graph, sourceID string, delta int, reason string) {
	echo := CascadeDelta(delta)
	if echo == 0 {
		return
	}

	for _, allyID := range g.Allies(sourceID) {
		if allyID == sourceID {
			continue
		}
		ApplyDelta(g.EdgeToPlayer(allyID), echo, reason)
	}

	for _, enemyID := range g.Enemies(sourceID) {
		if enemyID == sourceID {
			continue
		}
		ApplyDelta(g.EdgeToPlayer(enemyID), -echo, reason)
	}
}
