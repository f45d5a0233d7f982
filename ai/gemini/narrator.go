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

const systemPrompt = "You are a friendly matchmaker assistant."

// Narrator implements ai.Narrator with Gemini text models.
type Narrator struct {
	models      modelsAPI
	model       string
	temperature float32
	maxTokens   int32
	logger      *slog.Logger
}

var _ ai.Narrator = (*Narrator)(nil)

func newNarrator(models modelsAPI, config *ai.Config) *Narrator {
	return &Narrator{
		models:      models,
		model:       config.NarrativeModel,
		temperature: float32(config.Temperature),
		maxTokens:   int32(config.MaxTokens),
		logger:      slog.Default().With("component", "gemini-narrator"),
	}
}

// Complete sends prompt to Gemini and joins the textual parts of every candidate.
func (n *Narrator) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(n.temperature),
		MaxOutputTokens:   n.maxTokens,
	}

	n.logger.Debug("requesting narrative", "model", n.model, "prompt", ai.TruncateForLog(prompt, 0))
	resp, err := n.models.GenerateContent(ctx, n.model, genai.Text(prompt), cfg)
	if err != nil {
		n.logger.Error("failed to generate narrative", "err", err)
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	n.logger.Debug("narrative received", "response", ai.TruncateForLog(builder.String(), 0))
	return builder.String(), nil
}
