package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/rapport/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	embedResp  *genai.EmbedContentResponse
	embedErr   error
	genResp    *genai.GenerateContentResponse
	genErr     error
	lastModel  string
	lastConfig *genai.GenerateContentConfig
	embedded   int
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.lastModel = model
	f.embedded = len(contents)
	return f.embedResp, f.embedErr
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastConfig = config
	return f.genResp, f.genErr
}

func testConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithAPIKey("key"),
		ai.WithEmbeddingModel("text-embedding-004"),
		ai.WithNarrativeModel("gemini-2.5-flash"),
		ai.WithMaxTokens(120),
	)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 0}},
			{Values: []float32{0, 1}},
		},
	}}
	provider := newProviderWithModels(models, testConfig())

	vectors, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, "text-embedding-004", models.lastModel)
	assert.Equal(t, 2, models.embedded)
}

func TestEmbedder_CountMismatch(t *testing.T) {
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}},
	}}
	provider := newProviderWithModels(models, testConfig())

	_, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ai.ErrEmbeddingCountMismatch)
}

func TestEmbedder_EmptyVector(t *testing.T) {
	tests := []struct {
		name      string
		embedding *genai.ContentEmbedding
	}{
		{"zero-length values", &genai.ContentEmbedding{Values: []float32{}}},
		{"nil values", &genai.ContentEmbedding{}},
		{"missing embedding", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{embedResp: &genai.EmbedContentResponse{
				Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 0}}, tt.embedding},
			}}
			provider := newProviderWithModels(models, testConfig())

			_, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, ai.ErrEmptyEmbedding)
			assert.ErrorContains(t, err, "input 1")
		})
	}
}

func TestEmbedder_Error(t *testing.T) {
	models := &fakeModels{embedErr: errors.New("quota")}
	provider := newProviderWithModels(models, testConfig())

	_, err := provider.Embedder().EmbedText(context.Background(), "a")
	assert.Error(t, err)
}

func TestNarrator_Complete(t *testing.T) {
	models := &fakeModels{genResp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Line one "}, {Text: ""}, {Text: "Line two"}}},
		}},
	}}
	provider := newProviderWithModels(models, testConfig())

	text, err := provider.Narrator().Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", text)
	assert.Equal(t, "gemini-2.5-flash", models.lastModel)
	require.NotNil(t, models.lastConfig)
	assert.Equal(t, int32(120), models.lastConfig.MaxOutputTokens)
	require.NotNil(t, models.lastConfig.Temperature)
	assert.InDelta(t, 0.7, *models.lastConfig.Temperature, 1e-6)
}

func TestNarrator_EmptyPrompt(t *testing.T) {
	provider := newProviderWithModels(&fakeModels{}, testConfig())

	_, err := provider.Narrator().Complete(context.Background(), "   ")
	assert.Error(t, err)
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.DefaultConfig())
	assert.Error(t, err)
}
