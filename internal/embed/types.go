// Package embed provides text embedding for retrieval and the semantic
// cache. The production provider is Ollama; callers get an LRU-cached
// wrapper so repeated queries never re-embed.
package embed

import "context"

// Embedder converts text into dense vectors.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the underlying model identifier.
	ModelName() string

	Close() error
}
