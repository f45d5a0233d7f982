package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/rapport/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	response *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	return f.response, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func reply(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func TestNarrator_Complete(t *testing.T) {
	model := &fakeModel{response: reply("You both love hiking.")}
	narrator := newNarratorWithModel(model, ai.NewConfig(ai.WithTemperature(0.5), ai.WithMaxTokens(99)))

	text, err := narrator.Complete(context.Background(), "describe the match")
	require.NoError(t, err)
	assert.Equal(t, "You both love hiking.", text)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.TextPart("describe the match"), model.messages[1].Parts[0])
	assert.Equal(t, 0.5, model.options.Temperature)
	assert.Equal(t, 99, model.options.MaxTokens)
}

func TestNarrator_StripsCodeFences(t *testing.T) {
	model := &fakeModel{response: reply("```\nSimilarities:\n- both cook\n```")}
	narrator := newNarratorWithModel(model, ai.DefaultConfig())

	text, err := narrator.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Similarities:\n- both cook", text)
}

func TestNarrator_NoChoices(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{}}
	narrator := newNarratorWithModel(model, ai.DefaultConfig())

	text, err := narrator.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNarrator_Error(t *testing.T) {
	model := &fakeModel{err: errors.New("503 service unavailable")}
	narrator := newNarratorWithModel(model, ai.DefaultConfig())

	_, err := narrator.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}
