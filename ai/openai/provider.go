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

package openai

import (
	"log/slog"

	"github.com/poiesic/rapport/ai"
)

// Provider serves embeddings and match narratives from OpenAI-compatible
// endpoints (OpenAI, Ollama, vLLM, LM Studio). The embedding and narrative
// hosts may differ.
type Provider struct {
	embedder *Embedder
	narrator *Narrator
	logger   *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and builds both services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	narrator, err := newNarrator(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"narrative_host", config.NarrativeHost,
		"narrative_model", config.NarrativeModel)

	return &Provider{embedder: embedder, narrator: narrator, logger: logger}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Narrator() ai.Narrator {
	return p.narrator
}

// Close is a no-op; the underlying HTTP clients hold no resources.
func (p *Provider) Close() error {
	return nil
}
