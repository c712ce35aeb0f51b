package textfilter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// CanonicalID converts a display name to a stable lower snake_case id.
// "Madame Vastra" and "madame  vastra" both yield "madame_vastra", so an NPC
// first referenced by the model under slightly different spellings resolves
// to the same registry entry.
func CanonicalID(name string) string {
	var out strings.Builder
	prevUnderscore := false
	for i, r := range strings.TrimSpace(name) {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		if r == ' ' || r == '-' || r == '.' || r == '\'' || r == '_' {
			if !prevUnderscore && i > 0 {
				out.WriteRune('_')
				prevUnderscore = true
			}
			continue
		}
		out.WriteRune(r)
		prevUnderscore = false
	}
	return strings.TrimSuffix(out.String(), "_")
}

// DisplayName converts a canonical id back to a human-readable title-cased
// name. Used when an update references an NPC by id and no display name was
// ever provided.
func DisplayName(id string) string {
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}
