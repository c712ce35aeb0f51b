package creation

import "strings"

// completionPhrases is the fixed policy table of utterances that finish a
// creation or level-up episode. Matching is case-insensitive containment.
var completionPhrases = []string{
	"i'm done",
	"i'm finished",
	"start adventure",
	"begin story",
	"let's start",
	"ready to play",
	"that's everything",
	"character complete",
	"looks good",
	"looks perfect",
	"perfect",
	"that works",
	"i'm happy with this",
}

// ambiguousPhrases must never trigger completion. "i'm ready to start" during
// review means the user is ready to start reviewing, not done with it.
var ambiguousPhrases = []string{
	"i'm ready to start",
	"let's begin",
	"show me the character",
}

// MatchCompletion reports whether the utterance contains a recognized
// completion phrase and returns the phrase that matched. Utterances carrying
// only an ambiguous phrase are unmatched; completion intents phrased outside
// the table are out of scope and stay unmatched rather than guessed.
func MatchCompletion(utterance string) (string, bool) {
	lower := strings.ToLower(utterance)

	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// IsAmbiguous reports whether the utterance contains one of the explicitly
// excluded phrases. Useful for logging unmatched intents.
func IsAmbiguous(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, phrase := range ambiguousPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Flags is the context the transition function consults alongside the
// utterance.
type Flags struct {
	// ProposedStage is the stage the model's merged state update proposed,
	// if any. Proposals never reach complete; only a matched utterance does.
	ProposedStage Stage
}

// Next computes the stage after one turn. It never advances to complete
// except via a matched completion phrase, and complete is sticky until a new
// episode is explicitly begun.
func Next(current Stage, utterance string, flags Flags) Stage {
	if current == StageComplete {
		return StageComplete
	}

	if _, ok := MatchCompletion(utterance); ok {
		return StageComplete
	}

	// A model-proposed stage may move the episode forward through the
	// non-terminal stages, never backward and never to complete.
	if flags.ProposedStage != "" && flags.ProposedStage != StageComplete {
		if creationOrder[flags.ProposedStage] > creationOrder[current] {
			return flags.ProposedStage
		}
	}

	return current
}
