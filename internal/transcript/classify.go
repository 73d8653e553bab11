package transcript

import (
	"strings"

	"github.com/ordersift/ordersift/internal/model"
)

// Intent is the classification outcome for a single chunk.
type Intent string

// Chunk intents, in evaluation priority order. Negation outranks everything,
// including an explicit order word in the same chunk.
const (
	IntentNegation               Intent = "negation"
	IntentSymptomOnly            Intent = "symptom_only"
	IntentNoIntent               Intent = "no_intent"
	IntentActionWithoutReference Intent = "action_without_reference"
	IntentEligible               Intent = "eligible"
)

// Classifier decides what to do with a chunk before any matching happens.
type Classifier struct {
	vocab Vocabulary
}

// NewClassifier creates a classifier over the given vocabulary.
func NewClassifier(vocab Vocabulary) *Classifier {
	return &Classifier{vocab: vocab}
}

// Classify assigns an intent to a chunk. The rules form a strict cascade
// evaluated first-match-wins; a chunk containing both a negation phrase and
// a symptom word is a negation, never a symptom statement.
//
// ActionWithoutReference chunks carry clear ordering intent but mention no
// catalog term verbatim. They are deliberately not forwarded to embedding or
// LLM matching: a literal mention gates semantic matching. Whether that gate
// is too strict is an open product question; the conservative behavior is
// kept on purpose.
func (c *Classifier) Classify(chunk Chunk, tests []model.TestRecord) Intent {
	normalized := Normalize(chunk.Text)
	hasReference := len(ReferencedTests(normalized, tests)) > 0

	rules := []struct {
		applies func() bool
		intent  Intent
	}{
		{func() bool { return c.vocab.HasNegation(normalized) }, IntentNegation},
		{func() bool { return c.vocab.HasSymptom(normalized) }, IntentSymptomOnly},
		{func() bool { return !c.vocab.HasAction(normalized) && !hasReference }, IntentNoIntent},
		{func() bool { return !hasReference }, IntentActionWithoutReference},
	}

	for _, rule := range rules {
		if rule.applies() {
			return rule.intent
		}
	}
	return IntentEligible
}

// ReferencedTests returns the canonical names of every catalog test whose
// name or synonym appears verbatim (case-insensitively) in the normalized
// chunk. Each test contributes its name at most once.
func ReferencedTests(normalized string, tests []model.TestRecord) []string {
	var names []string

	for _, test := range tests {
		if strings.Contains(normalized, strings.ToLower(test.Name)) {
			names = append(names, test.Name)
			continue
		}
		for _, syn := range test.Synonyms {
			if strings.Contains(normalized, strings.ToLower(syn)) {
				names = append(names, test.Name)
				break
			}
		}
	}

	return names
}
