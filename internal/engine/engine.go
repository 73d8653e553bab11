// Package engine orchestrates the transcript-to-test matching pipeline:
// segmentation, intent classification, embedding matching with LLM fallback,
// and cross-chunk aggregation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ordersift/ordersift/internal/common"
	"github.com/ordersift/ordersift/internal/match"
	"github.com/ordersift/ordersift/internal/model"
	"github.com/ordersift/ordersift/internal/service"
	"github.com/ordersift/ordersift/internal/transcript"
)

// Engine runs the matching pipeline against a catalog snapshot. It carries
// no per-request state, so one Engine may serve concurrent transcripts.
type Engine struct {
	store      service.CatalogStore
	matcher    *match.Matcher
	segmenter  *transcript.Segmenter
	classifier *transcript.Classifier
	logger     *slog.Logger
}

// Options holds per-request overrides for matching parameters.
type Options struct {
	// Threshold is the minimum cosine similarity for an embedding match.
	// Zero means the default (0.75).
	Threshold float64
	// TopK is the number of fallback candidates handed to the
	// disambiguator. Zero means the default (5).
	TopK int
}

// New creates an engine over the given collaborators.
func New(store service.CatalogStore, matcher *match.Matcher, vocab transcript.Vocabulary, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		matcher:    matcher,
		segmenter:  transcript.NewSegmenter(vocab),
		classifier: transcript.NewClassifier(vocab),
		logger:     logger,
	}
}

// aggregationState is the fold state carried across chunks, in transcript
// order. Once a name enters removed it can never re-enter aggregated within
// the same transcript.
type aggregationState struct {
	aggregated map[string]model.AggregatedMatch
	removed    map[string]struct{}
	trace      []model.TraceEntry
}

// MatchTranscript converts a transcript into the aggregated set of tests to
// order. The catalog snapshot is taken once at the start and chunks are
// processed strictly sequentially: negation in a later chunk must be able to
// retract a match recorded by an earlier one, so chunk order is semantics,
// not an implementation detail.
//
// An empty catalog is reported as ErrCatalogNotReady rather than an empty
// result, so callers can tell "nothing matched" from "nothing to match
// against". An encoder failure aborts the whole request; disambiguator
// failures cost only their own chunk.
func (e *Engine) MatchTranscript(ctx context.Context, text string, opts Options) (*model.MatchResult, error) {
	tests, err := e.store.ListTestsWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load test catalog: %w", err)
	}
	if len(tests) == 0 {
		return nil, common.NewUserError("no tests loaded; import a catalog and generate embeddings first", common.ErrCatalogNotReady)
	}

	cfg := match.Config{Threshold: opts.Threshold, TopK: opts.TopK}
	chunks := e.segmenter.Segment(text)

	e.logger.Debug("segmented transcript",
		"chunks", len(chunks),
		"catalog_size", len(tests))

	state := &aggregationState{
		aggregated: make(map[string]model.AggregatedMatch),
		removed:    make(map[string]struct{}),
	}

	for _, chunk := range chunks {
		if err := e.processChunk(ctx, chunk, tests, cfg, state); err != nil {
			return nil, err
		}
	}

	result := &model.MatchResult{
		Transcript:    text,
		DetectedTests: sortedMatches(state.aggregated),
		RemovedTests:  sortedNames(state.removed),
		Trace:         state.trace,
	}

	e.logger.Info("transcript matched",
		"detected", len(result.DetectedTests),
		"removed", len(result.RemovedTests),
		"chunks", len(chunks))

	return result, nil
}

// processChunk fires exactly one aggregation transition for the chunk.
func (e *Engine) processChunk(ctx context.Context, chunk transcript.Chunk, tests []model.TestRecord, cfg match.Config, state *aggregationState) error {
	normalized := transcript.Normalize(chunk.Text)

	switch intent := e.classifier.Classify(chunk, tests); intent {
	case transcript.IntentNegation:
		e.applyNegation(chunk, normalized, tests, state)
		return nil

	case transcript.IntentSymptomOnly:
		state.skip(chunk, model.ReasonSymptomNotTest)
		return nil

	case transcript.IntentNoIntent:
		state.skip(chunk, model.ReasonNoIntent)
		return nil

	case transcript.IntentActionWithoutReference:
		// Ordering intent with no verbatim catalog term. Kept out of
		// semantic matching on purpose; the trace reason makes the
		// gate observable.
		state.skip(chunk, model.ReasonActionWithoutTest)
		return nil

	case transcript.IntentEligible:
		outcome, err := e.matcher.Match(ctx, chunk.Text, tests, cfg)
		if err != nil {
			return err
		}
		e.applyMatch(chunk, outcome, state)
		return nil

	default:
		return fmt.Errorf("unhandled chunk intent: %s", intent)
	}
}

// applyNegation retracts every literally referenced test and blocks it for
// the rest of the transcript. Negation is transcript-scoped: a doctor
// cancelling a test late in a dictation cancels it even if it was ordered
// several sentences earlier. A negation naming nothing identifiable is a
// trace-only no-op.
func (e *Engine) applyNegation(chunk transcript.Chunk, normalized string, tests []model.TestRecord, state *aggregationState) {
	names := transcript.ReferencedTests(normalized, tests)
	if len(names) == 0 {
		state.skip(chunk, model.ReasonNegation)
		return
	}

	for _, name := range names {
		state.removed[name] = struct{}{}
		delete(state.aggregated, name)
	}

	e.logger.Debug("negated tests", "chunk", chunk.Text, "removed", names)

	state.trace = append(state.trace, model.TraceEntry{
		Chunk:   chunk.Text,
		Method:  model.TraceNegation,
		Removed: names,
	})
}

// applyMatch folds a matcher outcome into the aggregation state.
//
// Embedding matches keep the best score seen for a name across chunks, and
// once recorded are never downgraded by a later LLM result for the same
// name. LLM matches fill only names not already present. Neither path can
// resurrect a removed name.
func (e *Engine) applyMatch(chunk transcript.Chunk, outcome match.Outcome, state *aggregationState) {
	if !outcome.UsedFallback {
		for _, candidate := range outcome.Matches {
			if _, gone := state.removed[candidate.Name]; gone {
				continue
			}
			existing, ok := state.aggregated[candidate.Name]
			if ok && existing.Method == model.MethodEmbedding && *existing.Score >= candidate.Score {
				continue
			}
			score := candidate.Score
			state.aggregated[candidate.Name] = model.AggregatedMatch{
				Name:   candidate.Name,
				Method: model.MethodEmbedding,
				Score:  &score,
			}
		}

		// The raw candidate list goes to the trace even when some
		// entries were filtered by an earlier negation.
		state.trace = append(state.trace, model.TraceEntry{
			Chunk:   chunk.Text,
			Method:  string(model.MethodEmbedding),
			Matches: outcome.Matches,
		})
		return
	}

	if match.IsOther(outcome.LLMMatches) {
		state.skip(chunk, model.ReasonNoClearTest)
		return
	}

	for _, name := range outcome.LLMMatches {
		if _, gone := state.removed[name]; gone {
			continue
		}
		if _, present := state.aggregated[name]; present {
			continue
		}
		state.aggregated[name] = model.AggregatedMatch{
			Name:   name,
			Method: model.MethodLLM,
			Score:  nil,
		}
	}

	state.trace = append(state.trace, model.TraceEntry{
		Chunk:  chunk.Text,
		Method: string(model.MethodLLM),
		Names:  outcome.LLMMatches,
	})
}

func (s *aggregationState) skip(chunk transcript.Chunk, reason string) {
	s.trace = append(s.trace, model.TraceEntry{
		Chunk:  chunk.Text,
		Method: model.TraceSkipped,
		Reason: reason,
	})
}

func sortedMatches(aggregated map[string]model.AggregatedMatch) []model.AggregatedMatch {
	out := make([]model.AggregatedMatch, 0, len(aggregated))
	for _, m := range aggregated {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
