package relationship

// Modifiers is the behavior record derived from a disposition tier. The
// narrative layer consumes it; the engine only computes it and never decides
// narrative content.
type Modifiers struct {
	// PriceMultiplier scales merchant prices for the player.
	PriceMultiplier float64 `json:"price_multiplier"`

	// SocialCheckDC is the adjustment applied to social check difficulty
	// classes against this NPC. Negative means easier.
	SocialCheckDC int `json:"social_check_dc"`

	// SharesSecrets reports whether the NPC will volunteer secret
	// information to the player.
	SharesSecrets bool `json:"shares_secrets"`
}

var modifierTable = map[Disposition]Modifiers{
	DispositionHostile:      {PriceMultiplier: 2.0, SocialCheckDC: 5, SharesSecrets: false},
	DispositionAntagonistic: {PriceMultiplier: 1.5, SocialCheckDC: 3, SharesSecrets: false},
	DispositionCold:         {PriceMultiplier: 1.2, SocialCheckDC: 1, SharesSecrets: false},
	DispositionNeutral:      {PriceMultiplier: 1.0, SocialCheckDC: 0, SharesSecrets: false},
	DispositionFriendly:     {PriceMultiplier: 0.9, SocialCheckDC: -1, SharesSecrets: false},
	DispositionTrusted:      {PriceMultiplier: 0.8, SocialCheckDC: -2, SharesSecrets: true},
	DispositionDevoted:      {PriceMultiplier: 0.7, SocialCheckDC: -4, SharesSecrets: true},
	DispositionBonded:       {PriceMultiplier: 0.5, SocialCheckDC: -5, SharesSecrets: true},
}

// ModifiersFor returns the behavior modifiers for a disposition tier.
func ModifiersFor(d Disposition) Modifiers {
	if m, ok := modifierTable[d]; ok {
		return m
	}
	return modifierTable[DispositionNeutral]
}
