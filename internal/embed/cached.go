package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by
// sha256(model + text). Query embeddings repeat constantly in the
// answer pipeline (retrieval plus cache lookup share the same vector),
// so even a small cache removes most provider round-trips.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) (*CachedEmbedder, error) {
	if capacity <= 0 {
		capacity = 1000
	}
	cache, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Embed returns the cached embedding or delegates to the inner embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text)
	if vec, ok := c.cache.Get(k); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, vec)
	return vec, nil
}

// EmbedBatch embeds texts, serving cached entries and delegating only
// the misses, preserving input order.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			c.hits.Add(1)
			result[i] = vec
			continue
		}
		c.misses.Add(1)
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			i := missingIdx[j]
			result[i] = vec
			c.cache.Add(c.key(texts[i]), vec)
		}
	}
	return result, nil
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the inner embedder's model identifier.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Stats returns cache hit and miss counts.
func (c *CachedEmbedder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close purges the cache and closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
