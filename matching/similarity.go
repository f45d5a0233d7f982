package matching

import (
	"fmt"
	"math"

	"github.com/poiesic/rapport/core"
)

// Similarity returns the cosine similarity of a and b clamped into [0, 1].
// Negative cosines floor to 0, and a zero-magnitude vector yields 0.
// Vectors of different lengths fail with core.ErrDimensionMismatch.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", core.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim) || sim < 0:
		return 0, nil
	case sim > 1:
		// rounding can push identical vectors a hair above 1
		return 1, nil
	}
	return sim, nil
}

// Percent is Similarity as a rounded integer in [0, 100].
func Percent(a, b []float32) (int, error) {
	sim, err := Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return int(math.Round(sim * 100)), nil
}
