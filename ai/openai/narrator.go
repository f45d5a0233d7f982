package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/rapport/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You are a friendly matchmaker assistant."

// Narrator implements ai.Narrator using OpenAI-compatible chat APIs.
type Narrator struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// newNarrator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newNarrator(config *ai.Config) (*Narrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.NarrativeHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.NarrativeModel),
	)
	if err != nil {
		return nil, err
	}

	return newNarratorWithModel(client, config), nil
}

func newNarratorWithModel(client llms.Model, config *ai.Config) *Narrator {
	return &Narrator{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-narrator"),
	}
}

// NewNarrator creates a new narrator using the provided configuration.
//
// Returns ai.Narrator interface to enforce abstraction.
func NewNarrator(config *ai.Config) (ai.Narrator, error) {
	return newNarrator(config)
}

// Complete sends prompt as a single user turn and returns the first choice.
// An empty choice list yields an empty string.
func (n *Narrator) Complete(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	n.logger.Debug("requesting narrative", "prompt", ai.TruncateForLog(prompt, 0))
	response, err := n.client.GenerateContent(ctx, content,
		llms.WithTemperature(n.temperature),
		llms.WithMaxTokens(n.maxTokens),
	)
	if err != nil {
		n.logger.Error("failed to generate narrative", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		n.logger.Debug("no choices returned from model")
		return "", nil
	}

	// Strip markdown code fences if present
	text := strings.TrimSpace(response.Choices[0].Content)
	text = strings.TrimPrefix(text, "```markdown")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	n.logger.Debug("narrative received", "response", ai.TruncateForLog(text, 0))
	return text, nil
}
