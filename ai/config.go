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
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
// Credentials are passed in explicitly; nothing here reads the environment.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// NarrativeHost is the base URL for the chat completion service API.
	// Example: "https://api.openai.com/v1"
	NarrativeHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Every vector compared in one request must come from the same model.
	// Example: "embeddinggemma", "text-embedding-ada-002"
	EmbeddingModel string

	// NarrativeModel is the model identifier to use for match explanations.
	// Example: "qwen2.5:3b", "gpt-3.5-turbo"
	NarrativeModel string

	// APIKey authenticates against the provider.
	// Local OpenAI-compatible servers accept any non-empty token.
	APIKey string

	// Temperature is the sampling temperature for narrative generation.
	// Default: 0.7
	Temperature float64

	// MaxTokens caps the length of a generated explanation.
	// Default: 150
	MaxTokens int

	// MaxBatchSize is the largest number of inputs sent in one embedding call.
	// Larger batches are split and reassembled in order.
	// Default: 2048
	MaxBatchSize int

	// RequestsPerSecond paces embedding calls. Zero disables pacing.
	RequestsPerSecond float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithNarrativeHost sets the chat completion service host URL.
func WithNarrativeHost(host string) ConfigOption {
	return func(c *Config) {
		c.NarrativeHost = host
	}
}

// WithHost sets both embedding and narrative hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.NarrativeHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithNarrativeModel sets the chat model identifier.
func WithNarrativeModel(model string) ConfigOption {
	return func(c *Config) {
		c.NarrativeModel = model
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTemperature sets the narrative sampling temperature.
func WithTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

// WithMaxTokens sets the narrative token limit.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithMaxBatchSize sets the largest number of inputs per embedding call.
func WithMaxBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.MaxBatchSize = n
	}
}

// WithRequestsPerSecond paces embedding calls.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and narrative use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:  defaultHost,
		NarrativeHost:  defaultHost,
		EmbeddingModel: "embeddinggemma",
		NarrativeModel: "qwen2.5:3b",
		APIKey:         "none",
		Temperature:    0.7,
		MaxTokens:      150,
		MaxBatchSize:   2048,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("https://api.openai.com/v1"),
//	    WithEmbeddingModel("text-embedding-ada-002"),
//	    WithAPIKey(key),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.NarrativeHost = normalizeHost(c.NarrativeHost)
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	// Remove trailing slash if present before adding /v1
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.NarrativeHost == "" {
		return errors.New("ai config: NarrativeHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.NarrativeModel == "" {
		return errors.New("ai config: NarrativeModel is required")
	}
	if c.APIKey == "" {
		return errors.New("ai config: APIKey is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxTokens < 1 {
		return errors.New("ai config: MaxTokens must be positive")
	}
	if c.MaxBatchSize < 1 {
		return errors.New("ai config: MaxBatchSize must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	return nil
}
