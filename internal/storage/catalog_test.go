package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ordersift/ordersift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLiteStorageRequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}

func TestListEmptyCatalog(t *testing.T) {
	s := newTestStorage(t)

	tests, err := s.ListTestsWithEmbeddings(context.Background())
	require.NoError(t, err, "an empty catalog is not an error at this layer")
	assert.Empty(t, tests)

	count, err := s.CountTests(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceCatalogRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	err := s.ReplaceCatalog(ctx, []model.TestRecord{
		{ID: "rbs", Name: "RBS", Category: "biochemistry", Synonyms: []string{"random blood sugar", "blood sugar"}},
		{Name: "Lipid Profile"}, // id and category defaulted
	})
	require.NoError(t, err)

	tests, err := s.ListTestsWithEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 2)

	// Listing is ordered by name.
	assert.Equal(t, "Lipid Profile", tests[0].Name)
	assert.Equal(t, "lipid-profile", tests[0].ID)
	assert.Equal(t, "lab", tests[0].Category)
	assert.Empty(t, tests[0].Synonyms)

	assert.Equal(t, "RBS", tests[1].Name)
	assert.Equal(t, "biochemistry", tests[1].Category)
	assert.Equal(t, []string{"random blood sugar", "blood sugar"}, tests[1].Synonyms)
	assert.False(t, tests[1].HasEmbeddings())

	count, err := s.CountTests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReplaceCatalogKeepsProvidedEmbeddings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	embeddings := [][]float64{{1, 0, 0}, {0.5, 0.5, 0}}
	err := s.ReplaceCatalog(ctx, []model.TestRecord{
		{ID: "cbc", Name: "CBC", Synonyms: []string{"complete blood count"}, Embeddings: embeddings},
	})
	require.NoError(t, err)

	tests, err := s.ListTestsWithEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, embeddings, tests[0].Embeddings)
}

func TestReplaceCatalogDiscardsPreviousContents(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceCatalog(ctx, []model.TestRecord{
		{ID: "cbc", Name: "CBC", Synonyms: []string{"complete blood count"}},
	}))
	require.NoError(t, s.ReplaceCatalog(ctx, []model.TestRecord{
		{ID: "rbs", Name: "RBS"},
	}))

	tests, err := s.ListTestsWithEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "RBS", tests[0].Name)
}

func TestReplaceCatalogRejectsInvalidRecord(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceCatalog(ctx, []model.TestRecord{{ID: "cbc", Name: "CBC"}}))

	// One synonym means two phrasings; a single vector is inconsistent.
	err := s.ReplaceCatalog(ctx, []model.TestRecord{
		{ID: "rbs", Name: "RBS", Synonyms: []string{"random blood sugar"}, Embeddings: [][]float64{{1, 0}}},
	})
	require.Error(t, err)

	// The old catalog survives a rejected replacement.
	tests, listErr := s.ListTestsWithEmbeddings(ctx)
	require.NoError(t, listErr)
	require.Len(t, tests, 1)
	assert.Equal(t, "CBC", tests[0].Name)
}

func TestSaveEmbeddings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceCatalog(ctx, []model.TestRecord{
		{ID: "cbc", Name: "CBC", Synonyms: []string{"complete blood count"}},
	}))

	first := [][]float64{{1, 0}, {0, 1}}
	require.NoError(t, s.SaveEmbeddings(ctx, "cbc", first))

	// A later save replaces the previous set entirely.
	second := [][]float64{{0.25, 0.75}, {0.75, 0.25}}
	require.NoError(t, s.SaveEmbeddings(ctx, "cbc", second))

	tests, err := s.ListTestsWithEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, second, tests[0].Embeddings)
	assert.True(t, tests[0].HasEmbeddings())
}

func TestSaveEmbeddingsRequiresTestID(t *testing.T) {
	s := newTestStorage(t)

	err := s.SaveEmbeddings(context.Background(), "", [][]float64{{1}})
	assert.Error(t, err)
}
