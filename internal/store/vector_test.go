package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWIndex_AddAndSearch(t *testing.T) {
	idx := NewHNSWIndex(3)
	ctx := context.Background()

	err := idx.Add(ctx, "t1",
		[]string{"same", "close", "far"},
		[][]float32{
			{1, 0, 0},
			{0.9, 0.1, 0},
			{0, 0, 1},
		})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "t1", []float32{1, 0, 0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Ascending distance: the identical vector first.
	assert.Equal(t, "same", results[0].ChunkID)
	assert.Equal(t, "close", results[1].ChunkID)
	assert.Less(t, results[0].Distance, results[1].Distance)

	// The orthogonal vector (distance 1.0) is past the threshold.
	for _, r := range results {
		assert.NotEqual(t, "far", r.ChunkID)
	}
}

func TestHNSWIndex_ThresholdIsExclusive(t *testing.T) {
	idx := NewHNSWIndex(2)
	ctx := context.Background()

	// Orthogonal vector: cosine distance exactly 1.0.
	require.NoError(t, idx.Add(ctx, "t1", []string{"a"}, [][]float32{{0, 1}}))

	results, err := idx.Search(ctx, "t1", []float32{1, 0}, 1.0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWIndex_TenantIsolation(t *testing.T) {
	idx := NewHNSWIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "t1", []string{"a"}, [][]float32{{1, 0}}))
	require.NoError(t, idx.Add(ctx, "t2", []string{"b"}, [][]float32{{1, 0}}))

	results, err := idx.Search(ctx, "t1", []float32{1, 0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)

	assert.Equal(t, 1, idx.Count("t1"))
	assert.Equal(t, 1, idx.Count("t2"))
	assert.Equal(t, 0, idx.Count("unknown"))
}

func TestHNSWIndex_Delete(t *testing.T) {
	idx := NewHNSWIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "t1", []string{"a", "b"}, [][]float32{{1, 0}, {0.9, 0.1}}))
	require.NoError(t, idx.Delete(ctx, "t1", []string{"a"}))

	assert.Equal(t, 1, idx.Count("t1"))

	results, err := idx.Search(ctx, "t1", []float32{1, 0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)
}

func TestHNSWIndex_ReAddReplaces(t *testing.T) {
	idx := NewHNSWIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "t1", []string{"a"}, [][]float32{{1, 0}}))
	require.NoError(t, idx.Add(ctx, "t1", []string{"a"}, [][]float32{{0, 1}}))

	assert.Equal(t, 1, idx.Count("t1"))

	// The old position no longer matches.
	results, err := idx.Search(ctx, "t1", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, "t1", []float32{0, 1}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := NewHNSWIndex(3)
	ctx := context.Background()

	err := idx.Add(ctx, "t1", []string{"a"}, [][]float32{{1, 0}})
	var dim ErrDimensionMismatch
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 3, dim.Expected)
	assert.Equal(t, 2, dim.Got)

	_, err = idx.Search(ctx, "t1", []float32{1, 0}, 0.8, 10)
	assert.True(t, errors.As(err, &dim))
}

func TestHNSWIndex_EmptyTenant(t *testing.T) {
	idx := NewHNSWIndex(2)

	results, err := idx.Search(context.Background(), "nobody", []float32{1, 0}, 0.8, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
