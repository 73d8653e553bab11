// Package match scores transcript chunks against the test catalog using
// embedding similarity, with an LLM disambiguation fallback.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/ordersift/ordersift/internal/common"
	"github.com/ordersift/ordersift/internal/model"
	"github.com/ordersift/ordersift/internal/service"
)

// Defaults for matching configuration.
const (
	DefaultThreshold = 0.75
	DefaultTopK      = 5
)

// Config holds per-request matching parameters.
type Config struct {
	Threshold float64
	TopK      int
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		TopK:      DefaultTopK,
	}
}

// Outcome is the result of matching a single chunk.
type Outcome struct {
	// Matches holds every record scoring at or above the threshold,
	// descending by score, scores rounded to 3 decimal places.
	Matches []model.MatchCandidate
	// UsedFallback is true when no record met the threshold and the LLM
	// disambiguator was consulted.
	UsedFallback bool
	// LLMMatches holds the disambiguator's picks (at most 2). The single
	// sentinel entry "Other" means no confident result and is preserved
	// for the caller to interpret.
	LLMMatches []string
}

// Matcher scores chunks against catalog embeddings.
type Matcher struct {
	encoder       service.Encoder
	disambiguator service.Disambiguator
	logger        *slog.Logger
}

// NewMatcher creates a matcher. The disambiguator may be nil, in which case
// the fallback degrades to the Other sentinel.
func NewMatcher(encoder service.Encoder, disambiguator service.Disambiguator, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		encoder:       encoder,
		disambiguator: disambiguator,
		logger:        logger,
	}
}

type recordScore struct {
	name  string
	score float64
}

// Match scores one chunk against the catalog. The chunk is encoded exactly
// once; every record's score is the maximum cosine similarity across its
// stored vectors, so its best phrasing wins. Records without embeddings are
// not scored. An encoder failure is fatal for the whole request and is
// surfaced; a disambiguator failure degrades to the Other sentinel.
//
// The similarity-to-threshold comparison uses the raw score: a candidate
// sitting exactly on the threshold is included.
func (m *Matcher) Match(ctx context.Context, chunkText string, tests []model.TestRecord, cfg Config) (Outcome, error) {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	query, err := m.encoder.Encode(ctx, chunkText)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", common.ErrEncoderUnavailable, err)
	}

	scored := make([]recordScore, 0, len(tests))
	for _, test := range tests {
		if !test.HasEmbeddings() {
			continue
		}
		best := math.Inf(-1)
		for _, emb := range test.Embeddings {
			if s, ok := cosineSimilarity(query, emb); ok && s > best {
				best = s
			}
		}
		if math.IsInf(best, -1) {
			continue
		}
		scored = append(scored, recordScore{name: test.Name, score: best})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var matches []model.MatchCandidate
	for _, rs := range scored {
		if rs.score >= cfg.Threshold {
			matches = append(matches, model.MatchCandidate{Name: rs.name, Score: round3(rs.score)})
		}
	}

	if len(matches) > 0 {
		return Outcome{Matches: matches}, nil
	}

	candidates := make([]string, 0, cfg.TopK)
	for i := 0; i < len(scored) && i < cfg.TopK; i++ {
		candidates = append(candidates, scored[i].name)
	}

	m.logger.Debug("no embedding match above threshold, invoking fallback",
		"chunk", chunkText,
		"threshold", cfg.Threshold,
		"candidates", candidates)

	return Outcome{
		UsedFallback: true,
		LLMMatches:   m.resolveFallback(ctx, chunkText, candidates),
	}, nil
}

// cosineSimilarity returns the normalized dot product of two vectors. The
// second result is false when the vectors cannot be compared (dimensionality
// mismatch or a zero-magnitude vector).
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
