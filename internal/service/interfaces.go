// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ordersift/ordersift/internal/model"
)

// CatalogStore supplies the test catalog the matcher runs against.
// Implementations must return an empty slice, not an error, when no catalog
// has been loaded; callers are responsible for treating an empty catalog as
// a distinct condition.
type CatalogStore interface {
	ListTestsWithEmbeddings(ctx context.Context) ([]model.TestRecord, error)
	CountTests(ctx context.Context) (int, error)
}

// CatalogWriter extends CatalogStore with the operations used by catalog
// preparation commands. The matching pipeline itself only ever reads.
type CatalogWriter interface {
	CatalogStore
	ReplaceCatalog(ctx context.Context, tests []model.TestRecord) error
	SaveEmbeddings(ctx context.Context, testID string, embeddings [][]float64) error
}

// Encoder turns a phrase into a fixed-dimensionality vector. Two calls with
// identical input must produce numerically equivalent output for a given
// model configuration.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// Disambiguator is the LLM fallback. It receives a fully built prompt and
// returns the raw completion text; prompt construction and response parsing
// belong to the matching core, not the provider.
type Disambiguator interface {
	Disambiguate(ctx context.Context, prompt string) (string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
