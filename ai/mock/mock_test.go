package mock

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "hiking")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "hiking")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "knitting")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, DefaultDimension)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_TracksBatches(t *testing.T) {
	m := NewMockEmbedder()
	m.Dimension = 8

	vectors, err := m.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], 8)

	assert.Equal(t, 1, m.CallCount())
	assert.Equal(t, 3, m.InputCount())
	assert.Equal(t, [][]string{{"a", "b", "c"}}, m.Batches())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Empty(t, m.Batches())
}

func TestMockEmbedder_Concurrent(t *testing.T) {
	m := NewMockEmbedder()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "x")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.CallCount())
}

func TestMockNarrator(t *testing.T) {
	n := NewMockNarrator()

	text, err := n.Complete(context.Background(), "tell me")
	require.NoError(t, err)
	assert.Equal(t, DefaultNarrative, text)
	assert.Equal(t, "tell me", n.LastPrompt())
	assert.Equal(t, 1, n.CallCount())

	n.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "custom", nil
	}
	text, err = n.Complete(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, "custom", text)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()

	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockNarrator(), p.Narrator())
	assert.NoError(t, p.Close())
}
