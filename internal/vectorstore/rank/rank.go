package rank

import (
	"math"
	"slices"

	"pdf-rag/internal/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 when either is the zero
// vector. Vectors of different lengths compare over the shorter prefix.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts results by descending score and keeps the first k. Equal scores keep
// their input order.
func TopK(results []domain.SearchResult, k int) []domain.SearchResult {
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}
