// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// TestRecord is a read-only view of one diagnostic test from the catalog.
// Embeddings, when present, hold one vector per phrasing: index 0 is the
// canonical name, the remainder follow Synonyms in order. A record without
// embeddings still participates in literal substring matching.
type TestRecord struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Synonyms   []string    `json:"synonyms"`
	Embeddings [][]float64 `json:"embeddings,omitempty"`
}

// HasEmbeddings reports whether the record is eligible for similarity scoring.
func (t TestRecord) HasEmbeddings() bool {
	return len(t.Embeddings) > 0
}

// Validate checks structural invariants of the record.
func (t TestRecord) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("test record has no name")
	}
	if len(t.Embeddings) > 0 && len(t.Embeddings) != 1+len(t.Synonyms) {
		return fmt.Errorf("test %q: %d embeddings for %d phrasings (want name + every synonym)",
			t.Name, len(t.Embeddings), 1+len(t.Synonyms))
	}
	return nil
}

// Phrasings returns the name followed by every synonym, matching the
// embedding layout.
func (t TestRecord) Phrasings() []string {
	out := make([]string, 0, 1+len(t.Synonyms))
	out = append(out, t.Name)
	out = append(out, t.Synonyms...)
	return out
}
