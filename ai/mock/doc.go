// Package mock provides test doubles for the ai interfaces.
//
// The mocks need no network access and produce deterministic output, so
// tests of the matching engine and explanation assembler run offline.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("quota exceeded")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockNarrator: Returns DefaultNarrative
//   - MockProvider: Aggregates mock embedder and narrator
package mock
