package model

// MatchMethod indicates how a test was detected.
type MatchMethod string

// Match method constants.
const (
	MethodEmbedding MatchMethod = "embedding"
	MethodLLM       MatchMethod = "llm"
)

// Trace method markers for chunks that produced no match.
const (
	TraceSkipped  = "skipped"
	TraceNegation = "negation"
)

// Skip reasons recorded in the trace.
const (
	ReasonNegation          = "negation"
	ReasonSymptomNotTest    = "symptom_not_test"
	ReasonNoIntent          = "no_intent"
	ReasonActionWithoutTest = "action_without_test"
	ReasonNoClearTest       = "no_clear_test"
)

// MatchCandidate is one scored test emitted for a single chunk.
type MatchCandidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// AggregatedMatch is the per-test record retained in the final result.
// Score is nil for LLM-sourced matches, which carry no similarity.
type AggregatedMatch struct {
	Name   string      `json:"name"`
	Method MatchMethod `json:"method"`
	Score  *float64    `json:"score"`
}

// TraceEntry is the audit record for one chunk. It is append-only output
// and never feeds back into later chunks.
type TraceEntry struct {
	Chunk   string           `json:"chunk"`
	Method  string           `json:"method"`
	Reason  string           `json:"reason,omitempty"`
	Matches []MatchCandidate `json:"matches,omitempty"`
	Names   []string         `json:"names,omitempty"`
	Removed []string         `json:"removed,omitempty"`
}

// MatchResult is the transcript-level outcome returned to callers.
type MatchResult struct {
	Transcript    string            `json:"transcript"`
	DetectedTests []AggregatedMatch `json:"detected_tests"`
	RemovedTests  []string          `json:"removed_tests"`
	Trace         []TraceEntry      `json:"trace"`
}
