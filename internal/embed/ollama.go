package embed

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

// OllamaEmbedder embeds text via a local Ollama server.
type OllamaEmbedder struct {
	embedder   *embeddings.EmbedderImpl
	model      string
	dimensions int
	batchSize  int
}

var _ Embedder = (*OllamaEmbedder)(nil)

// OllamaConfig configures the Ollama embedding provider.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int
	BatchSize  int
}

// NewOllamaEmbedder connects to the Ollama server. The connection is
// lazy; the first Embed call surfaces availability errors.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	client, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, cerrors.ProviderUnavailable("ollama", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(cfg.BatchSize),
	)
	if err != nil {
		return nil, cerrors.ProviderUnavailable("ollama", err)
	}

	return &OllamaEmbedder{
		embedder:   embedder,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeEmbeddingFailed, "embed query", err).
			WithDetail("model", e.model)
	}
	if len(vec) != e.dimensions {
		slog.Warn("embedding dimension differs from configuration",
			slog.String("model", e.model),
			slog.Int("expected", e.dimensions),
			slog.Int("got", len(vec)))
	}
	return vec, nil
}

// EmbedBatch returns embeddings for multiple texts, in input order.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeEmbeddingFailed, "embed batch", err).
			WithDetail("model", e.model)
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the Ollama model identifier.
func (e *OllamaEmbedder) ModelName() string { return e.model }

// Close is a no-op; the Ollama client is stateless HTTP.
func (e *OllamaEmbedder) Close() error { return nil }
