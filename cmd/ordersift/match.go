package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ordersift/ordersift/internal/engine"
	"github.com/ordersift/ordersift/internal/match"
	"github.com/ordersift/ordersift/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [transcript]",
		Short: "Match a dictated transcript against the test catalog",
		Long: `Match a clinical transcript against the loaded test catalog and print the
tests to order, the tests explicitly cancelled, and (optionally) the
per-chunk decision trace.

The transcript comes from the first argument, --file, or stdin.

Examples:
  ordersift match "Check CBC and RBS. Don't do LFT."
  ordersift match --file dictation.txt --trace
  cat dictation.txt | ordersift match --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMatch,
	}

	cmd.Flags().StringP("file", "f", "", "Read the transcript from a file")
	cmd.Flags().Float64P("threshold", "t", match.DefaultThreshold, "Minimum cosine similarity for an embedding match")
	cmd.Flags().IntP("top-k", "k", match.DefaultTopK, "Number of candidates offered to the LLM fallback")
	cmd.Flags().Bool("trace", false, "Print the per-chunk decision trace")
	cmd.Flags().Bool("json", false, "Emit the full result as JSON")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("matching.threshold", cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag("matching.top_k", cmd.Flags().Lookup("top-k"))

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	transcriptText, err := readTranscript(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(transcriptText) == "" {
		return fmt.Errorf("transcript is empty")
	}

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

	// A missing disambiguator only disables the fallback path; every chunk
	// it would have served degrades to "no clear test".
	disambiguator, err := createDisambiguator()
	if err != nil {
		slog.Warn("Disambiguator unavailable, LLM fallback disabled", "error", err)
		disambiguator = nil
	}

	vocab, err := loadVocabulary()
	if err != nil {
		return err
	}

	eng := engine.New(db, match.NewMatcher(encoder, disambiguator, slog.Default()), vocab, slog.Default())

	result, err := eng.MatchTranscript(ctx, transcriptText, engine.Options{
		Threshold: viper.GetFloat64("matching.threshold"),
		TopK:      viper.GetInt("matching.top_k"),
	})
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	printResult(result)

	if withTrace, _ := cmd.Flags().GetBool("trace"); withTrace {
		printTrace(result.Trace)
	}

	return nil
}

func readTranscript(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read transcript file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read transcript from stdin: %w", err)
	}
	return string(data), nil
}

func printResult(result *model.MatchResult) {
	if len(result.DetectedTests) == 0 {
		fmt.Println("No tests detected.")
	} else {
		rows := make([][]string, 0, len(result.DetectedTests))
		for _, m := range result.DetectedTests {
			score := "-"
			if m.Score != nil {
				score = strconv.FormatFloat(*m.Score, 'f', 3, 64)
			}
			rows = append(rows, []string{m.Name, string(m.Method), score})
		}
		fmt.Println(renderTable(
			[]string{"Test", "Method", "Score"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight},
		))
	}

	if len(result.RemovedTests) > 0 {
		fmt.Printf("Cancelled: %s\n", strings.Join(result.RemovedTests, ", "))
	}
}

func printTrace(trace []model.TraceEntry) {
	rows := make([][]string, 0, len(trace))
	for _, entry := range trace {
		detail := entry.Reason
		switch {
		case len(entry.Matches) > 0:
			parts := make([]string, 0, len(entry.Matches))
			for _, m := range entry.Matches {
				parts = append(parts, fmt.Sprintf("%s (%.3f)", m.Name, m.Score))
			}
			detail = strings.Join(parts, ", ")
		case len(entry.Names) > 0:
			detail = strings.Join(entry.Names, ", ")
		case len(entry.Removed) > 0:
			detail = strings.Join(entry.Removed, ", ")
		}
		rows = append(rows, []string{entry.Chunk, entry.Method, detail})
	}

	fmt.Println(renderTable(
		[]string{"Chunk", "Outcome", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
}
