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

// Package ai provides abstractions for the AI services rapport depends on.
//
// Two capabilities are needed: turning survey answers into vectors and
// turning a scored pair of profiles into a short narrative. Both are
// expressed as interfaces so the matching engine never imports a vendor SDK.
//
//   - Embedder: Generates vector embeddings from text
//   - Narrator: Completes a prompt into prose
//   - AIProvider: Aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (OpenAI, Ollama, vLLM) via langchaingo
//   - ai/gemini: Google Gemini via the genai SDK
//   - ai/mock: Deterministic test doubles
//
// Public constructors return interfaces. The mock constructors return
// concrete types so tests can inject behavior and count calls.
//
// # Batching
//
// ChunkedEmbedder wraps any Embedder and splits large batches into
// provider-sized chunks, optionally paced by a rate limiter. Results are
// always returned in input order.
//
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	embedder := ai.NewChunkedEmbedder(provider.Embedder(), cfg.MaxBatchSize, cfg.RequestsPerSecond)
//	vectors, err := embedder.EmbedTexts(ctx, texts)
package ai
