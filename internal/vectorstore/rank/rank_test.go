package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pdf-rag/internal/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-12)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 3}), 1e-12)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 1}, []float64{-1, -1}), 1e-12)
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 0}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestTopK(t *testing.T) {
	in := []domain.SearchResult{
		{ID: "a", Score: 0.1},
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.5},
		{ID: "d", Score: 0.9},
	}
	got := TopK(in, 3)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "d", "c"}, ids)
	assert.Len(t, TopK(in, 10), 4)
}
