package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id string, score float64, kind StrategyKind) *Result {
	return &Result{ChunkID: id, Score: score, Strategy: kind}
}

func TestFuse_Empty(t *testing.T) {
	assert.Nil(t, Fuse(nil, DefaultFusionWeights(), 10))
	assert.Nil(t, Fuse([]*Result{}, DefaultFusionWeights(), 10))
}

func TestFuse_SingleStrategy(t *testing.T) {
	// Given: one keyword entry with score 0.4
	results := []*Result{result("A", 0.4, StrategyKeyword)}

	fused := Fuse(results, DefaultFusionWeights(), 10)

	// Then: (0.4*2.0 + 0.1*1) / 1 = 0.9
	require.Len(t, fused, 1)
	assert.Equal(t, "A", fused[0].ChunkID)
	assert.InDelta(t, 0.9, fused[0].Score, 1e-9)
	assert.Equal(t, []StrategyKind{StrategyKeyword}, fused[0].Strategies)
}

func TestFuse_MultiStrategyAccumulation(t *testing.T) {
	// Given: chunk A found by keyword and semantic, chunk B only semantic
	results := []*Result{
		result("A", 0.5, StrategyKeyword),
		result("B", 0.8, StrategySemantic),
		result("A", 0.6, StrategySemantic),
	}

	fused := Fuse(results, DefaultFusionWeights(), 10)
	require.Len(t, fused, 2)

	// A: (0.5*2.0 + 0.6*1.0 + 0.1*2) / 2 = 0.9
	// B: (0.8*1.0 + 0.1*1) / 1 = 0.9 -> capped comparison, tie
	byID := map[string]*FusedResult{}
	for _, f := range fused {
		byID[f.ChunkID] = f
	}
	assert.InDelta(t, 0.9, byID["A"].Score, 1e-9)
	assert.InDelta(t, 0.9, byID["B"].Score, 1e-9)
	assert.ElementsMatch(t, []StrategyKind{StrategyKeyword, StrategySemantic}, byID["A"].Strategies)

	// Tie broken by first appearance: A came first in the input.
	assert.Equal(t, "A", fused[0].ChunkID)
	assert.Equal(t, "B", fused[1].ChunkID)
}

func TestFuse_DuplicateEntriesFromOneStrategy(t *testing.T) {
	// The keyword matcher emits one entry per matched term; each entry
	// counts toward the contribution count.
	results := []*Result{
		result("A", 0.3, StrategyKeyword),
		result("A", 0.3, StrategyKeyword),
	}

	fused := Fuse(results, DefaultFusionWeights(), 10)
	require.Len(t, fused, 1)

	// (0.3*2 + 0.3*2 + 0.1*2) / 2 = 0.7
	assert.InDelta(t, 0.7, fused[0].Score, 1e-9)
	assert.Equal(t, []StrategyKind{StrategyKeyword}, fused[0].Strategies)
}

func TestFuse_ScoreCappedAtOne(t *testing.T) {
	results := []*Result{
		result("A", 0.9, StrategyKeyword),
		result("A", 0.9, StrategyLexical),
	}

	fused := Fuse(results, DefaultFusionWeights(), 10)
	require.Len(t, fused, 1)
	assert.Equal(t, 1.0, fused[0].Score)
}

func TestFuse_SortedDescendingWithLimit(t *testing.T) {
	results := []*Result{
		result("low", 0.1, StrategySemantic),
		result("high", 0.9, StrategySemantic),
		result("mid", 0.5, StrategySemantic),
	}

	fused := Fuse(results, DefaultFusionWeights(), 2)
	require.Len(t, fused, 2)
	assert.Equal(t, "high", fused[0].ChunkID)
	assert.Equal(t, "mid", fused[1].ChunkID)
}

func TestFuse_Deterministic(t *testing.T) {
	results := []*Result{
		result("A", 0.5, StrategySemantic),
		result("B", 0.5, StrategySemantic),
		result("C", 0.5, StrategySemantic),
	}

	first := Fuse(results, DefaultFusionWeights(), 10)
	for i := 0; i < 10; i++ {
		again := Fuse(results, DefaultFusionWeights(), 10)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].ChunkID, again[j].ChunkID)
			assert.Equal(t, first[j].Score, again[j].Score)
		}
	}
}

func TestFuse_WeightsFavorKeyword(t *testing.T) {
	// Equal raw scores: the keyword hit must outrank the semantic one.
	results := []*Result{
		result("sem", 0.5, StrategySemantic),
		result("key", 0.5, StrategyKeyword),
	}

	fused := Fuse(results, DefaultFusionWeights(), 10)
	require.Len(t, fused, 2)
	assert.Equal(t, "key", fused[0].ChunkID)
	assert.Greater(t, fused[0].Score, fused[1].Score)
}

func TestFuse_LexicalBetweenKeywordAndSemantic(t *testing.T) {
	results := []*Result{
		result("sem", 0.5, StrategySemantic),
		result("lex", 0.5, StrategyLexical),
		result("key", 0.5, StrategyKeyword),
	}

	fused := Fuse(results, DefaultFusionWeights(), 10)
	require.Len(t, fused, 3)
	assert.Equal(t, "key", fused[0].ChunkID)
	assert.Equal(t, "lex", fused[1].ChunkID)
	assert.Equal(t, "sem", fused[2].ChunkID)
}
