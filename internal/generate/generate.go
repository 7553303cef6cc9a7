// Package generate produces answers from retrieved context through a
// chat-completion model served by Ollama.
package generate

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

// Generator produces an answer for a question given assembled context.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
	Close() error
}

// OllamaGenerator implements Generator on an Ollama chat model.
type OllamaGenerator struct {
	llm         *ollama.LLM
	model       string
	temperature float64
	maxTokens   int
}

var _ Generator = (*OllamaGenerator)(nil)

// Config configures the generation provider.
type Config struct {
	Host        string
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewOllamaGenerator connects to the Ollama server.
func NewOllamaGenerator(cfg Config) (*OllamaGenerator, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, cerrors.ProviderUnavailable("ollama", err)
	}
	return &OllamaGenerator{
		llm:         llm,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate runs one chat completion with a system and a user message.
func (g *OllamaGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", cerrors.New(cerrors.ErrCodeGenerationFailed, "generate answer", err).
			WithDetail("model", g.model)
	}
	if len(resp.Choices) == 0 {
		return "", cerrors.New(cerrors.ErrCodeGenerationFailed, "empty model response", nil).
			WithDetail("model", g.model)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// ModelName returns the chat model identifier.
func (g *OllamaGenerator) ModelName() string { return g.model }

// Close is a no-op; the Ollama client is stateless HTTP.
func (g *OllamaGenerator) Close() error { return nil }
