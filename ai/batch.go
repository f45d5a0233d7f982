// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// ErrEmbeddingCountMismatch is returned when a provider answers a batch
// with a different number of vectors than inputs.
var ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

// ErrEmptyEmbedding is returned when a provider answers an input with a
// zero-length vector.
var ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")

// ChunkedEmbedder splits large batches into provider-sized chunks.
// Chunks are sent in order and the results are reassembled in input order.
type ChunkedEmbedder struct {
	embedder  Embedder
	chunkSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ Embedder = (*ChunkedEmbedder)(nil)

// NewChunkedEmbedder wraps embedder so that no call carries more than chunkSize inputs.
// When requestsPerSecond is positive every chunk waits for a rate limiter token.
func NewChunkedEmbedder(embedder Embedder, chunkSize int, requestsPerSecond float64) *ChunkedEmbedder {
	if chunkSize < 1 {
		chunkSize = 1
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &ChunkedEmbedder{
		embedder:  embedder,
		chunkSize: chunkSize,
		limiter:   limiter,
		logger:    slog.Default().With("component", "chunked-embedder"),
	}
}

// EmbedText embeds a single text.
func (c *ChunkedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.embedder.EmbedText(ctx, text)
}

// EmbedTexts embeds texts in chunks of at most chunkSize inputs.
func (c *ChunkedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.chunkSize {
		end := min(start+c.chunkSize, len(texts))

		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		c.logger.Debug("embedding chunk", "start", start, "end", end, "total", len(texts))
		vectors, err := c.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCountMismatch, end-start, len(vectors))
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func (c *ChunkedEmbedder) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}
