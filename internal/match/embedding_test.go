package match

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ordersift/ordersift/internal/common"
	"github.com/ordersift/ordersift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEncoder struct {
	vectors map[string][]float64
	err     error
}

func (m *mockEncoder) Encode(_ context.Context, text string) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

type mockDisambiguator struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockDisambiguator) Disambiguate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

// unit returns v scaled to magnitude 1 so cosine scores are easy to read off.
func unit(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func matchCatalog() []model.TestRecord {
	return []model.TestRecord{
		{
			ID:       "cbc",
			Name:     "CBC",
			Synonyms: []string{"complete blood count"},
			Embeddings: [][]float64{
				{1, 0, 0},            // name
				unit([]float64{1, 1, 0}), // synonym
			},
		},
		{
			ID:         "rbs",
			Name:       "RBS",
			Synonyms:   []string{"random blood sugar"},
			Embeddings: [][]float64{{0, 1, 0}, {0, 1, 0}},
		},
		{
			// No embeddings: literal matching only, never scored.
			ID:       "lft",
			Name:     "LFT",
			Synonyms: []string{"liver function test"},
		},
	}
}

func TestMatchScoresBestPhrasing(t *testing.T) {
	encoder := &mockEncoder{vectors: map[string][]float64{
		// Closer to CBC's synonym vector than to its name vector.
		"check complete blood count": unit([]float64{1, 1, 0}),
	}}
	m := NewMatcher(encoder, nil, nil)

	outcome, err := m.Match(context.Background(), "check complete blood count", matchCatalog(), DefaultConfig())
	require.NoError(t, err)
	require.False(t, outcome.UsedFallback)
	require.Len(t, outcome.Matches, 1)

	assert.Equal(t, "CBC", outcome.Matches[0].Name)
	assert.InDelta(t, 1.0, outcome.Matches[0].Score, 0.001, "best phrasing wins, not the name vector")
}

func TestMatchThresholdBoundary(t *testing.T) {
	catalog := []model.TestRecord{
		{ID: "cbc", Name: "CBC", Embeddings: [][]float64{{1, 0, 0}}},
	}

	tests := []struct {
		name         string
		query        []float64
		wantFallback bool
	}{
		{
			// cosine((3,4,0), (1,0,0)) = 3/5, exactly the 0.6 threshold.
			name:         "exactly at threshold is included",
			query:        []float64{3, 4, 0},
			wantFallback: false,
		},
		{
			name:         "below threshold falls back",
			query:        []float64{1, 2, 0}, // cosine 1/sqrt(5) ~ 0.447
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder := &mockEncoder{vectors: map[string][]float64{"check CBC": tt.query}}
			m := NewMatcher(encoder, nil, nil)

			outcome, err := m.Match(context.Background(), "check CBC", catalog, Config{Threshold: 0.6, TopK: 5})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFallback, outcome.UsedFallback)
			if !tt.wantFallback {
				require.Len(t, outcome.Matches, 1)
				assert.Equal(t, 0.6, outcome.Matches[0].Score)
			}
		})
	}
}

func TestMatchEmitsDescendingScores(t *testing.T) {
	catalog := []model.TestRecord{
		{ID: "a", Name: "Alpha", Embeddings: [][]float64{unit([]float64{0.8, 0.6, 0})}},
		{ID: "b", Name: "Beta", Embeddings: [][]float64{{1, 0, 0}}},
	}
	encoder := &mockEncoder{vectors: map[string][]float64{"check both": {1, 0, 0}}}
	m := NewMatcher(encoder, nil, nil)

	outcome, err := m.Match(context.Background(), "check both", catalog, Config{Threshold: 0.75, TopK: 5})
	require.NoError(t, err)
	require.Len(t, outcome.Matches, 2)

	assert.Equal(t, "Beta", outcome.Matches[0].Name)
	assert.Equal(t, "Alpha", outcome.Matches[1].Name)
}

func TestMatchFallbackUsesTopCandidates(t *testing.T) {
	disambiguator := &mockDisambiguator{reply: `{"matches": ["RBS"]}`}
	// Orthogonal to every catalog vector: nothing clears the threshold.
	encoder := &mockEncoder{vectors: map[string][]float64{
		"check blood sugar": {0, 0, 1},
	}}
	m := NewMatcher(encoder, disambiguator, nil)

	outcome, err := m.Match(context.Background(), "check blood sugar", matchCatalog(), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, outcome.UsedFallback)
	assert.Equal(t, []string{"RBS"}, outcome.LLMMatches)

	require.Len(t, disambiguator.prompts, 1)
	prompt := disambiguator.prompts[0]
	assert.Contains(t, prompt, `"check blood sugar"`)
	assert.Contains(t, prompt, "RBS")
	assert.Contains(t, prompt, "Return max 2 items.")
}

func TestMatchFallbackFailureDegradesToOther(t *testing.T) {
	disambiguator := &mockDisambiguator{err: errors.New("connection refused")}
	encoder := &mockEncoder{vectors: map[string][]float64{}}
	m := NewMatcher(encoder, disambiguator, nil)

	outcome, err := m.Match(context.Background(), "check something obscure", matchCatalog(), DefaultConfig())
	require.NoError(t, err, "disambiguator failures must not surface")
	assert.True(t, outcome.UsedFallback)
	assert.True(t, IsOther(outcome.LLMMatches))
}

func TestMatchWithoutDisambiguatorDegradesToOther(t *testing.T) {
	encoder := &mockEncoder{vectors: map[string][]float64{}}
	m := NewMatcher(encoder, nil, nil)

	outcome, err := m.Match(context.Background(), "check something obscure", matchCatalog(), DefaultConfig())
	require.NoError(t, err)
	assert.True(t, outcome.UsedFallback)
	assert.True(t, IsOther(outcome.LLMMatches))
}

func TestMatchEncoderFailureIsFatal(t *testing.T) {
	encoder := &mockEncoder{err: errors.New("boom")}
	m := NewMatcher(encoder, nil, nil)

	_, err := m.Match(context.Background(), "check CBC", matchCatalog(), DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEncoderUnavailable)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float64
		want   float64
		wantOK bool
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1, wantOK: true},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0, wantOK: true},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1, wantOK: true},
		{name: "dimension mismatch", a: []float64{1, 0}, b: []float64{1, 0, 0}, wantOK: false},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 0}, wantOK: false},
		{name: "empty vectors", a: nil, b: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cosineSimilarity(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
