package transcript

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the word lists that drive segmentation and intent
// classification. All lookups are substring checks over normalized text, so
// entries must themselves be lowercase ASCII.
type Vocabulary struct {
	Negations    []string `yaml:"negations"`
	OrderActions []string `yaml:"order_actions"`
	Symptoms     []string `yaml:"symptoms"`
}

// DefaultVocabulary returns the built-in word lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Negations: []string{
			"don't", "dont", "do not", "no need", "not required",
			"not needed", "avoid", "skip", "no longer", "stop", "already have",
			"already done", "cancel", "remove", "drop", "exclude",
		},
		OrderActions: []string{
			"check", "test", "do", "order", "send", "investigate", "take", "include", "add",
		},
		Symptoms: []string{
			"pain", "pressure", "heaviness", "fatigue", "breathlessness",
			"dizziness", "weakness", "palpitation", "swelling",
		},
	}
}

// LoadVocabulary reads word list overrides from a YAML file. Lists absent
// from the file keep their built-in values.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var overrides Vocabulary
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Vocabulary{}, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	vocab := DefaultVocabulary()
	if len(overrides.Negations) > 0 {
		vocab.Negations = overrides.Negations
	}
	if len(overrides.OrderActions) > 0 {
		vocab.OrderActions = overrides.OrderActions
	}
	if len(overrides.Symptoms) > 0 {
		vocab.Symptoms = overrides.Symptoms
	}
	return vocab, nil
}

// FindAction returns the first order-action keyword contained in the
// normalized text, in vocabulary order, or "" if none is present.
func (v Vocabulary) FindAction(normalized string) string {
	for _, word := range v.OrderActions {
		if strings.Contains(normalized, word) {
			return word
		}
	}
	return ""
}

// HasAction reports whether the normalized text contains any order-action keyword.
func (v Vocabulary) HasAction(normalized string) bool {
	return v.FindAction(normalized) != ""
}

// HasNegation reports whether the normalized text contains any negation phrase.
func (v Vocabulary) HasNegation(normalized string) bool {
	return containsAny(normalized, v.Negations)
}

// HasSymptom reports whether the normalized text contains any symptom word.
func (v Vocabulary) HasSymptom(normalized string) bool {
	return containsAny(normalized, v.Symptoms)
}

func containsAny(s string, words []string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
