package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ordersift/ordersift/internal/common"
	"github.com/ordersift/ordersift/internal/model"
	"github.com/ordersift/ordersift/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for the stored catalog",
		Long: `Encode every catalog phrasing (each test's name and all of its synonyms)
with the configured embedding model and store the vectors. Matching only
scores tests that have embeddings, so run this after every catalog import.`,
		RunE: runEmbed,
	}

	cmd.Flags().Bool("force", false, "Re-encode tests that already have embeddings")

	return cmd
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	encoder, err := createEncoder()
	if err != nil {
		return err
	}

	tests, err := db.ListTestsWithEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(tests) == 0 {
		return common.NewUserError("no tests to embed; import a catalog first", common.ErrCatalogNotReady)
	}

	pending := make([]model.TestRecord, 0, len(tests))
	for _, t := range tests {
		if force || !t.HasEmbeddings() {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		slog.Info("All tests already embedded; use --force to re-encode")
		return nil
	}

	bar := progressbar.Default(int64(len(pending)), "encoding")

	for _, t := range pending {
		embeddings, err := encodePhrasings(ctx, encoder, t.Phrasings())
		if err != nil {
			return fmt.Errorf("failed to encode %q: %w", t.Name, err)
		}
		if err := db.SaveEmbeddings(ctx, t.ID, embeddings); err != nil {
			return err
		}
		_ = bar.Add(1)
	}

	slog.Info("Embeddings generated", "tests", len(pending))
	return nil
}

// encodePhrasings encodes each phrasing in order, retrying transient encoder
// failures. This is bulk preparation, not the request path; the matching
// pipeline itself never retries.
func encodePhrasings(ctx context.Context, encoder service.Encoder, phrasings []string) ([][]float64, error) {
	embeddings := make([][]float64, 0, len(phrasings))

	for _, phrase := range phrasings {
		var vector []float64
		err := common.WithRetry(ctx, func() error {
			var encodeErr error
			vector, encodeErr = encoder.Encode(ctx, phrase)
			if encodeErr != nil {
				return &common.RetryableError{Err: encodeErr, Retryable: true}
			}
			return nil
		}, service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
		})
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vector)
	}

	return embeddings, nil
}
