package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/rapport/ai"
	"google.golang.org/genai"
)

// Embedder implements ai.Embedder with Gemini embedding models.
type Embedder struct {
	models modelsAPI
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(models modelsAPI, model string) *Embedder {
	return &Embedder{
		models: models,
		model:  model,
		logger: slog.Default().With("component", "gemini-embedder"),
	}
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts sends every text as a separate content in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingCountMismatch, len(texts), got)
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: input %d", ai.ErrEmptyEmbedding, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
