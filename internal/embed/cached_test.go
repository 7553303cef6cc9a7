package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder counts provider calls.
type countingEmbedder struct {
	calls atomic.Int64
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return []float32{float32(len(text)), 1, 2}, nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 2}
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int   { return 3 }
func (e *countingEmbedder) ModelName() string { return "counting" }
func (e *countingEmbedder) Close() error      { return nil }

func TestCachedEmbedder_RepeatedQueryHitsCache(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Embed(ctx, "care este cota de tva?")
	require.NoError(t, err)

	second, err := c.Embed(ctx, "care este cota de tva?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachedEmbedder_BatchServesCachedEntries(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Embed(ctx, "aaa")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"aaa", "bbbb", "aaa"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// Input order preserved, cached entries reused.
	assert.Equal(t, float32(3), vecs[0][0])
	assert.Equal(t, float32(4), vecs[1][0])
	assert.Equal(t, vecs[0], vecs[2])

	// One Embed call plus one batch call for the single miss.
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "unu")
	_, _ = c.Embed(ctx, "doi")
	_, _ = c.Embed(ctx, "trei") // evicts "unu"
	_, _ = c.Embed(ctx, "unu")

	assert.Equal(t, int64(4), inner.calls.Load())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c, err := NewCachedEmbedder(&countingEmbedder{}, 10)
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
