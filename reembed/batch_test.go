package reembed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/ai/mock"
	"github.com/poiesic/rapport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

// unnormalized returns {1, 2, 2, 0} for every input; its magnitude is 3.
func unnormalized(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 2, 0}
	}
	return out, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	repo := setupRepo(t, 2)
	ctx := context.Background()
	page, err := repo.ListProfiles(ctx, "", 10)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = unnormalized
	bp := NewBatchProcessor(repo, embedder, fastRetry, nil)

	n, err := bp.Process(ctx, page)
	require.NoError(t, err)
	// user-000 has auxiliary text, user-001 does not
	assert.Equal(t, 2*core.FieldCount+1, n)
	assert.Equal(t, 1, embedder.CallCount())

	first, err := repo.GetProfile(ctx, "user-000")
	require.NoError(t, err)
	require.True(t, first.HasFieldEmbeddings())
	for _, v := range first.FieldEmbeddings {
		assert.Len(t, v, 4)
		assert.InDelta(t, 1.0, magnitude(v), 1e-6)
	}
	require.True(t, first.HasAuxiliary())
	assert.InDelta(t, 1.0, magnitude(first.AuxiliaryEmbedding), 1e-6)

	second, err := repo.GetProfile(ctx, "user-001")
	require.NoError(t, err)
	assert.Len(t, second.FieldEmbeddings[0], 4)
	assert.False(t, second.HasAuxiliary())
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	bp := NewBatchProcessor(setupRepo(t, 0), embedder, fastRetry, nil)

	n, err := bp.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_RetriesProvider(t *testing.T) {
	repo := setupRepo(t, 1)
	page, err := repo.ListProfiles(context.Background(), "", 10)
	require.NoError(t, err)

	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("429 too many requests")
		}
		return unnormalized(ctx, texts)
	}
	bp := NewBatchProcessor(repo, embedder, fastRetry, nil)

	_, err = bp.Process(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBatchProcessor_Errors(t *testing.T) {
	repo := setupRepo(t, 1)
	page, err := repo.ListProfiles(context.Background(), "", 10)
	require.NoError(t, err)

	t.Run("provider keeps failing", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("embedding error")
		}
		_, err := NewBatchProcessor(repo, embedder, fastRetry, nil).Process(context.Background(), page)
		assert.ErrorContains(t, err, "embedding error")
		assert.Equal(t, 3, embedder.CallCount())
	})

	t.Run("count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}
		_, err := NewBatchProcessor(repo, embedder, fastRetry, nil).Process(context.Background(), page)
		assert.ErrorIs(t, err, ai.ErrEmbeddingCountMismatch)
	})

	t.Run("profile removed from store", func(t *testing.T) {
		ghost := *page[0]
		ghost.UserID = "ghost"
		embedder := mock.NewMockEmbedder()
		_, err := NewBatchProcessor(repo, embedder, fastRetry, nil).Process(context.Background(), []*core.UserProfile{&ghost})
		assert.ErrorContains(t, err, "failed to update profiles")
	})
}
