package matching

import (
	"math"
	"testing"

	"github.com/poiesic/rapport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite floors to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"negative cosine floors to zero", []float32{1, 1}, []float32{-1, 0.2}, 0},
		{"forty-five degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := Similarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, sim, 1e-6)
			assert.False(t, math.IsNaN(sim))
		})
	}
}

func TestSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{0.3, -0.7, 0.1},
		{1e-3, 1e-3},
		{42},
		{-5, -5, -5, -5},
	}
	for _, v := range vectors {
		sim, err := Similarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-6)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{0.1, 0.9, -0.3}, {0.5, 0.2, 0.8}},
		{{1, 0}, {0.6, 0.8}},
		{{-1, 2}, {3, -4}},
	}
	for _, p := range pairs {
		ab, err := Similarity(p[0], p[1])
		require.NoError(t, err)
		ba, err := Similarity(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestSimilarity_DimensionMismatch(t *testing.T) {
	_, err := Similarity([]float32{1, 2, 3}, []float32{1, 2})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = Percent([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected int
	}{
		{"identical", []float32{1, 1}, []float32{1, 1}, 100},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"forty-five degrees rounds 70.7 up", []float32{1, 0}, []float32{1, 1}, 71},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, err := Percent(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pct)
		})
	}
}
