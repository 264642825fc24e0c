package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

var ErrEmptyResponse = errors.New("model returned no text")

// Generator issues single-turn text prompts against a chat model.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGenerator(client *genai.Client, model string, temperature float32) *Generator {
	return &Generator{client: client, model: model, temperature: temperature}
}

// WithTemperature returns a copy of g sampling at t.
func (g *Generator) WithTemperature(t float32) *Generator {
	c := *g
	c.temperature = t
	return &c
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(g.temperature)

	slog.DebugContext(ctx, "generating content", "model", g.model, "temperature", g.temperature, "prompt_length", len(prompt))
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "model", g.model, "error", err)
		return "", err
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
