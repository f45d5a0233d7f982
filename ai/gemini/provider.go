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

package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/rapport/ai"
	"google.golang.org/genai"
)

// modelsAPI is the subset of *genai.Models used here.
type modelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements ai.AIProvider using the Gemini API.
type Provider struct {
	embedder *Embedder
	narrator *Narrator
	logger   *slog.Logger
}

// NewProvider creates a Gemini-backed provider. Hosts in config are ignored;
// the genai client talks to the Gemini API endpoint directly.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" || apiKey == "none" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newProviderWithModels(client.Models, config), nil
}

func newProviderWithModels(models modelsAPI, config *ai.Config) *Provider {
	return &Provider{
		embedder: newEmbedder(models, config.EmbeddingModel),
		narrator: newNarrator(models, config),
		logger:   slog.Default().With("component", "gemini-provider"),
	}
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Narrator returns the text generation service.
func (p *Provider) Narrator() ai.Narrator {
	return p.narrator
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return nil
}
