package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/domain"
)

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Record{
		{ID: "x", Vector: []float64{1, 0}, Text: "east", Metadata: map[string]any{"page": 1}},
		{ID: "y", Vector: []float64{0, 1}, Text: "north"},
		{ID: "z", Vector: []float64{0.6, 0.8}, Text: "mostly north"},
	}))

	res, err := s.Search(ctx, []float64{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "north", res[0].Text)
	assert.Equal(t, "mostly north", res[1].Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-12)
	assert.InDelta(t, 0.8, res[1].Score, 1e-12)

	res, err = s.Search(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 3)
	assert.Equal(t, map[string]any{"page": 1}, res[0].Metadata)
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "x", Vector: []float64{1, 0}, Text: "old"}}))
	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "x", Vector: []float64{1, 0}, Text: "new"}}))
	require.NoError(t, s.Upsert(ctx, []domain.Record{{Vector: []float64{0, 1}, Text: "anon"}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	res, err := s.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", res[0].Text)
	assert.NotEmpty(t, res[0].ID)
}

func TestDimensionChecks(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.ErrorIs(t, s.EnsureCollection(ctx, 0), domain.ErrValidation)
	require.NoError(t, s.EnsureCollection(ctx, 3))
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Record{{Vector: []float64{1}}}), domain.ErrValidation)
	_, err := s.Search(ctx, []float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1, 0, 0}}}))
	assert.ErrorIs(t, s.EnsureCollection(ctx, 4), domain.ErrStore)
}

func TestClearAndEmptySearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	res, err := s.Search(ctx, []float64{1}, 2)
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "a", Vector: []float64{1}}}))
	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
