package reembed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

// BatchProcessor embeds a page of profiles in one provider call and stores
// the new vectors.
type BatchProcessor struct {
	repo     storage.ProfileRepository
	embedder ai.Embedder
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(repo storage.ProfileRepository, embedder ai.Embedder, retry RetryPolicy, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{repo: repo, embedder: embedder, retry: retry, logger: logger}
}

// Process re-embeds the answers, and auxiliary text when present, of every
// profile in the batch. It returns the number of texts embedded.
func (bp *BatchProcessor) Process(ctx context.Context, profiles []*core.UserProfile) (int, error) {
	if len(profiles) == 0 {
		return 0, nil
	}

	var texts []string
	for _, p := range profiles {
		for i, answer := range p.Answers {
			texts = append(texts, core.SurveyInput(i, answer))
		}
		if p.AuxiliaryText != "" {
			texts = append(texts, p.AuxiliaryText)
		}
	}

	var vectors [][]float32
	err := bp.retry.Do(ctx, bp.logger, func(ctx context.Context) error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.retry.MaxAttempts, err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingCountMismatch, len(texts), len(vectors))
	}

	next := 0
	for _, p := range profiles {
		fields := make([][]float32, core.FieldCount)
		for i := range fields {
			fields[i] = NormalizeVector(vectors[next])
			next++
		}
		p.FieldEmbeddings = fields

		p.AuxiliaryEmbedding = nil
		if p.AuxiliaryText != "" {
			p.AuxiliaryEmbedding = NormalizeVector(vectors[next])
			next++
		}
	}

	if _, err := bp.repo.UpdateProfiles(ctx, profiles...); err != nil {
		return 0, fmt.Errorf("failed to update profiles: %w", err)
	}
	return len(texts), nil
}
