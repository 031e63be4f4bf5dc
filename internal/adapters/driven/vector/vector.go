// Package vector holds the similarity helpers shared by the brute-force
// vector indexes (memory and sqlite).
package vector

import (
	"math"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts hits into retrieval order and keeps the first k.
func TopK(hits []domain.ScoredChunk, k int) []domain.ScoredChunk {
	domain.SortScored(hits)
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// CheckDimensions verifies every chunk matches dims, or fixes dims from the
// first chunk when dims is 0. It returns the effective dimensionality.
func CheckDimensions(dims int, chunks []domain.Chunk) (int, error) {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return dims, domain.ErrDimensionMismatch
		}
		if dims == 0 {
			dims = len(c.Embedding)
			continue
		}
		if len(c.Embedding) != dims {
			return dims, domain.ErrDimensionMismatch
		}
	}
	return dims, nil
}
