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

package mock

import "github.com/poiesic/rapport/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder *MockEmbedder
	narrator *MockNarrator
}

// NewMockProvider creates a provider backed by fresh mocks.
// Use GetMockEmbedder and GetMockNarrator to reach the concrete doubles.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		narrator: NewMockNarrator(),
	}
}

// NewMockProviderWithServices creates a provider around existing mocks.
func NewMockProviderWithServices(embedder *MockEmbedder, narrator *MockNarrator) *MockProvider {
	return &MockProvider{
		embedder: embedder,
		narrator: narrator,
	}
}

var _ ai.AIProvider = (*MockProvider)(nil)

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) Narrator() ai.Narrator {
	return p.narrator
}

func (p *MockProvider) Close() error {
	return nil
}

func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

func (p *MockProvider) GetMockNarrator() *MockNarrator {
	return p.narrator
}
