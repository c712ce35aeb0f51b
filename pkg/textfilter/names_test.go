package textfilter

import "testing"

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Gibbs", "gibbs"},
		{"two words", "Madame Vastra", "madame_vastra"},
		{"extra spaces", "madame  vastra", "madame_vastra"},
		{"hyphenated", "Jean-Luc", "jean_luc"},
		{"apostrophe", "D'argo", "d_argo"},
		{"already canonical", "old_tom", "old_tom"},
		{"trailing space", "Calypso ", "calypso"},
		{"leading space", "  Calypso", "calypso"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalID(tt.input); got != tt.expected {
				t.Errorf("CanonicalID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gibbs", "Gibbs"},
		{"madame_vastra", "Madame Vastra"},
		{"old_tom", "Old Tom"},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
