package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ordersift/ordersift/internal/model"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the test catalog",
	}

	cmd.AddCommand(catalogImportCmd())
	cmd.AddCommand(catalogListCmd())

	return cmd
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <tests.json>",
		Short: "Replace the catalog from a JSON file",
		Long: `Replace the stored catalog with the records in a JSON file.

The file is an array of test objects:
  [{"id": "cbc", "name": "CBC", "category": "hematology",
    "synonyms": ["complete blood count", "full blood count"]}, ...]

Embeddings are not imported; run "ordersift embed" afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runCatalogImport,
	}
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var tests []model.TestRecord
	if err := json.Unmarshal(data, &tests); err != nil {
		return fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(tests) == 0 {
		return fmt.Errorf("catalog file contains no tests")
	}

	// Imported files carry phrasings only; vectors come from "ordersift embed".
	for i := range tests {
		tests[i].Embeddings = nil
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

	if err := db.ReplaceCatalog(ctx, tests); err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}

	slog.Info("Catalog imported", "tests", len(tests))
	slog.Info("Next: generate embeddings with: ordersift embed")
	return nil
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored catalog",
		RunE:  runCatalogList,
	}
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	tests, err := db.ListTestsWithEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if len(tests) == 0 {
		fmt.Println("Catalog is empty. Import one with: ordersift catalog import <tests.json>")
		return nil
	}

	rows := make([][]string, 0, len(tests))
	for _, t := range tests {
		embedded := "no"
		if t.HasEmbeddings() {
			embedded = "yes"
		}
		rows = append(rows, []string{
			t.ID,
			t.Name,
			t.Category,
			strconv.Itoa(len(t.Synonyms)),
			embedded,
		})
	}

	fmt.Println(renderTable(
		[]string{"ID", "Name", "Category", "Synonyms", "Embedded"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))

	var missing []string
	for _, t := range tests {
		if !t.HasEmbeddings() {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		fmt.Printf("Missing embeddings: %s\n", strings.Join(missing, ", "))
	}

	return nil
}
