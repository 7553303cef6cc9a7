package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(100, 10)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestChunker_SmallTextSingleChunk(t *testing.T) {
	c := NewChunker(1000, 100)

	pieces := c.Split("impozitul pe cladiri se plateste anual")
	require.Len(t, pieces, 1)
	assert.Equal(t, "impozitul pe cladiri se plateste anual", pieces[0].Content)
	assert.Equal(t, 0, pieces[0].Page)
}

func TestChunker_SplitsAtSize(t *testing.T) {
	c := NewChunker(50, 0)

	text := strings.Repeat("cuvant ", 40)
	pieces := c.Split(text)
	require.Greater(t, len(pieces), 1)

	for _, p := range pieces {
		// A chunk may exceed the target by at most one word.
		assert.LessOrEqual(t, len(p.Content), 50+len("cuvant")+1)
		assert.NotEmpty(t, p.Content)
	}

	// No words lost.
	total := 0
	for _, p := range pieces {
		total += len(strings.Fields(p.Content))
	}
	assert.Equal(t, 40, total)
}

func TestChunker_OverlapRepeatsTail(t *testing.T) {
	c := NewChunker(60, 20)

	text := strings.Repeat("unu doi trei patru cinci ", 10)
	pieces := c.Split(text)
	require.Greater(t, len(pieces), 1)

	// The second chunk starts with a suffix of the first.
	firstWords := strings.Fields(pieces[0].Content)
	secondWords := strings.Fields(pieces[1].Content)

	overlap := 0
	for k := 1; k <= len(firstWords) && k <= len(secondWords); k++ {
		suffix := strings.Join(firstWords[len(firstWords)-k:], " ")
		prefix := strings.Join(secondWords[:k], " ")
		if suffix == prefix {
			overlap = k
		}
	}
	assert.Greater(t, overlap, 0)
}

func TestChunker_PageMarkers(t *testing.T) {
	c := NewChunker(1000, 0)

	pieces := c.Split("[Pagina 1] text de pe prima pagina [Pagina 2] text de pe a doua")
	require.Len(t, pieces, 1)

	// Markers never leak into content.
	assert.NotContains(t, pieces[0].Content, "[Pagina")
	assert.Equal(t, 1, pieces[0].Page)
}

func TestChunker_PageTrackedPerChunk(t *testing.T) {
	c := NewChunker(30, 0)

	pieces := c.Split("[Pagina 1] " + strings.Repeat("alfa ", 10) + "[Pagina 2] " + strings.Repeat("beta ", 10))
	require.GreaterOrEqual(t, len(pieces), 2)

	assert.Equal(t, 1, pieces[0].Page)
	last := pieces[len(pieces)-1]
	assert.Equal(t, 2, last.Page)
	assert.Contains(t, last.Content, "beta")
}

func TestChunker_BadParametersFallBack(t *testing.T) {
	c := NewChunker(0, -5)
	pieces := c.Split("un text oarecare")
	require.Len(t, pieces, 1)

	c = NewChunker(10, 50) // overlap >= size
	pieces = c.Split(strings.Repeat("cuvant ", 20))
	assert.NotEmpty(t, pieces)
}
