package bolt

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/domain"
)

func openTestStore(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := Open(path, "pdf-docs", nil)
	require.NoError(t, err)
	return s
}

func TestUpsertSearchPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")
	s := openTestStore(t, path)
	require.NoError(t, s.EnsureCollection(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Record{
		{ID: "a", Vector: []float64{1, 0}, Text: "east", Metadata: map[string]any{"page": 2, "source": "a.pdf"}},
		{ID: "b", Vector: []float64{0, 1}, Text: "north"},
	}))
	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1, 0}, Text: "east again"}}))
	require.NoError(t, s.Close())

	s = openTestStore(t, path)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.Search(ctx, []float64{0.9, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, "east again", res[0].Text)
	assert.Greater(t, res[0].Score, 0.9)
}

func TestMetadataSurvivesAsJSON(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "v.db"))
	defer s.Close()
	require.NoError(t, s.Upsert(ctx, []domain.Record{
		{ID: "a", Vector: []float64{1}, Text: "t", Metadata: map[string]any{"page": 3, "source": "x.pdf"}},
	}))
	res, err := s.Search(ctx, []float64{1}, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"page": float64(3), "source": "x.pdf"}, res[0].Metadata)
}

func TestDimensionValidation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "v.db"))
	defer s.Close()
	require.NoError(t, s.EnsureCollection(ctx, 3))
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Record{{Vector: []float64{1, 2}}}), domain.ErrValidation)
	_, err := s.Search(ctx, []float64{1}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, s.Upsert(ctx, []domain.Record{{Vector: []float64{1, 2, 3}}}))
	err = s.EnsureCollection(ctx, 2)
	require.ErrorIs(t, err, domain.ErrStore)
	assert.Equal(t, 1, strings.Count(err.Error(), domain.ErrStore.Error()))
	assert.Contains(t, err.Error(), "has dimension 3, want 2")
	require.NoError(t, s.EnsureCollection(ctx, 3))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "v.db"))
	defer s.Close()
	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1}}}))
	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	res, err := s.Search(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestOpenRequiresCollection(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "v.db"), "", nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
