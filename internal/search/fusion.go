package search

import (
	"math"
	"sort"
)

// FusionWeights control how much each strategy's scores count and the
// bonus awarded per contributing entry.
type FusionWeights struct {
	Keyword  float64
	Semantic float64
	Lexical  float64
	// Bonus is added once per contributing entry before averaging, so
	// chunks surfaced repeatedly (several terms, several strategies)
	// outrank single-entry chunks with equal raw scores.
	Bonus float64
}

// DefaultFusionWeights favor exact keyword hits over semantic neighbors,
// with lexical rank between them.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Keyword:  2.0,
		Semantic: 1.0,
		Lexical:  1.5,
		Bonus:    0.1,
	}
}

func (w FusionWeights) weight(kind StrategyKind) float64 {
	switch kind {
	case StrategyKeyword:
		return w.Keyword
	case StrategySemantic:
		return w.Semantic
	case StrategyLexical:
		return w.Lexical
	default:
		return 1.0
	}
}

type fusionEntry struct {
	chunkID     string
	weightedSum float64
	count       int
	strategies  []StrategyKind
	order       int // first-seen position, breaks score ties
}

// Fuse merges per-strategy results into a single ranking.
//
// For each chunk: final = (Σ score*weight + bonus*n) / n where n counts
// the chunk's contributing entries, not distinct strategies. The result
// is capped at 1.0, sorted by descending score, ties broken by first
// appearance in the input, and truncated to limit.
func Fuse(results []*Result, weights FusionWeights, limit int) []*FusedResult {
	if len(results) == 0 {
		return nil
	}

	entries := make(map[string]*fusionEntry)
	var order []string
	for _, r := range results {
		e, ok := entries[r.ChunkID]
		if !ok {
			e = &fusionEntry{chunkID: r.ChunkID, order: len(order)}
			entries[r.ChunkID] = e
			order = append(order, r.ChunkID)
		}
		e.weightedSum += r.Score * weights.weight(r.Strategy)
		e.count++
		if !containsStrategy(e.strategies, r.Strategy) {
			e.strategies = append(e.strategies, r.Strategy)
		}
	}

	fused := make([]*FusedResult, 0, len(order))
	for _, id := range order {
		e := entries[id]
		score := (e.weightedSum + weights.Bonus*float64(e.count)) / float64(e.count)
		fused = append(fused, &FusedResult{
			ChunkID:    e.chunkID,
			Score:      math.Min(1.0, score),
			Strategies: e.strategies,
		})
	}

	// Stable sort keeps first-seen order for equal scores, which makes
	// fusion deterministic for identical inputs.
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}

func containsStrategy(list []StrategyKind, kind StrategyKind) bool {
	for _, k := range list {
		if k == kind {
			return true
		}
	}
	return false
}
