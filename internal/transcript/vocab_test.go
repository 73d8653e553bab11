package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocabFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadVocabularyOverrides(t *testing.T) {
	path := writeVocabFile(t, `
negations:
  - "no thanks"
symptoms:
  - cough
  - fever
`)

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"no thanks"}, vocab.Negations)
	assert.Equal(t, []string{"cough", "fever"}, vocab.Symptoms)
	// Lists absent from the file keep their defaults.
	assert.Equal(t, DefaultVocabulary().OrderActions, vocab.OrderActions)
}

func TestLoadVocabularyEmptyFileKeepsDefaults(t *testing.T) {
	path := writeVocabFile(t, "")

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabulary(), vocab)
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadVocabularyMalformedYAML(t *testing.T) {
	path := writeVocabFile(t, "negations: [unclosed")

	_, err := LoadVocabulary(path)
	assert.Error(t, err)
}

func TestFindAction(t *testing.T) {
	vocab := DefaultVocabulary()

	tests := []struct {
		name       string
		normalized string
		want       string
	}{
		{
			name:       "single keyword",
			normalized: "send a lipid profile",
			want:       "send",
		},
		{
			// Keywords are tried in vocabulary order, not text order.
			name:       "vocabulary order wins over position",
			normalized: "order it and check cbc",
			want:       "check",
		},
		{
			// Substring lookup on purpose, mirroring how transcripts are
			// actually worded; "don't" still carries the "do" keyword.
			name:       "keyword inside a longer word",
			normalized: "don't forget the results",
			want:       "do",
		},
		{
			name:       "no keyword",
			normalized: "patient is stable",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vocab.FindAction(tt.normalized))
		})
	}
}

func TestVocabularyPredicates(t *testing.T) {
	vocab := DefaultVocabulary()

	assert.True(t, vocab.HasNegation("no need for that"))
	assert.True(t, vocab.HasNegation("already done last week"))
	assert.False(t, vocab.HasNegation("check cbc"))

	assert.True(t, vocab.HasSymptom("complains of chest pain"))
	assert.False(t, vocab.HasSymptom("check cbc"))

	assert.True(t, vocab.HasAction("please include lft"))
	assert.False(t, vocab.HasAction("patient is stable"))
}
