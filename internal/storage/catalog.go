package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ordersift/ordersift/internal/model"
)

// ListTestsWithEmbeddings returns the full catalog, each record carrying any
// stored embedding vectors in phrasing order (position 0 = name). An empty
// catalog yields an empty slice, not an error.
func (s *SQLiteStorage) ListTestsWithEmbeddings(ctx context.Context) ([]model.TestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category
		FROM tests
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tests []model.TestRecord
	for rows.Next() {
		var t model.TestRecord
		if err := rows.Scan(&t.ID, &t.Name, &t.Category); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tests: %w", err)
	}

	for i := range tests {
		if tests[i].Synonyms, err = s.synonymsForTest(ctx, tests[i].ID); err != nil {
			return nil, err
		}
		if tests[i].Embeddings, err = s.embeddingsForTest(ctx, tests[i].ID); err != nil {
			return nil, err
		}
	}

	slog.Debug("loaded test catalog", "count", len(tests))
	return tests, nil
}

// CountTests returns the number of catalog entries.
func (s *SQLiteStorage) CountTests(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tests: %w", err)
	}
	return count, nil
}

// ReplaceCatalog swaps the stored catalog for the given records in one
// transaction. Stored embeddings are kept only for records that provide
// them; everything else must be re-encoded afterwards.
func (s *SQLiteStorage) ReplaceCatalog(ctx context.Context, tests []model.TestRecord) error {
	for _, t := range tests {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid catalog entry: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"embeddings", "synonyms", "tests"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, t := range tests {
		id := t.ID
		if id == "" {
			id = slugify(t.Name)
		}
		category := t.Category
		if category == "" {
			category = "lab"
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tests (id, name, category) VALUES (?, ?, ?)`,
			id, t.Name, category); err != nil {
			return fmt.Errorf("failed to insert test %q: %w", t.Name, err)
		}

		for pos, phrase := range t.Synonyms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO synonyms (test_id, position, phrase) VALUES (?, ?, ?)`,
				id, pos, phrase); err != nil {
				return fmt.Errorf("failed to insert synonym for %q: %w", t.Name, err)
			}
		}

		if err := saveEmbeddingsTx(ctx, tx, id, t.Embeddings); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}

	slog.Info("replaced test catalog", "count", len(tests))
	return nil
}

// SaveEmbeddings stores the embedding vectors for one test, replacing any
// previous set. Vectors must follow phrasing order: name first, then every
// synonym.
func (s *SQLiteStorage) SaveEmbeddings(ctx context.Context, testID string, embeddings [][]float64) error {
	if testID == "" {
		return fmt.Errorf("testID cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("failed to clear embeddings for %s: %w", testID, err)
	}

	if err := saveEmbeddingsTx(ctx, tx, testID, embeddings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

func saveEmbeddingsTx(ctx context.Context, tx *sql.Tx, testID string, embeddings [][]float64) error {
	for pos, vector := range embeddings {
		encoded, err := json.Marshal(vector)
		if err != nil {
			return fmt.Errorf("failed to encode vector: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO embeddings (test_id, position, vector) VALUES (?, ?, ?)`,
			testID, pos, string(encoded)); err != nil {
			return fmt.Errorf("failed to insert embedding for %s: %w", testID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) synonymsForTest(ctx context.Context, testID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT phrase
		FROM synonyms
		WHERE test_id = ?
		ORDER BY position`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query synonyms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var synonyms []string
	for rows.Next() {
		var phrase string
		if err := rows.Scan(&phrase); err != nil {
			return nil, fmt.Errorf("failed to scan synonym: %w", err)
		}
		synonyms = append(synonyms, phrase)
	}
	return synonyms, rows.Err()
}

func (s *SQLiteStorage) embeddingsForTest(ctx context.Context, testID string) ([][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vector
		FROM embeddings
		WHERE test_id = ?
		ORDER BY position`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings [][]float64
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		var vector []float64
		if err := json.Unmarshal([]byte(encoded), &vector); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", testID, err)
		}
		embeddings = append(embeddings, vector)
	}
	return embeddings, rows.Err()
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
