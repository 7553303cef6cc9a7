package search

import (
	"context"

	"github.com/civica-ai/civica/internal/store"
)

// LexicalStrategy scores chunks by full-text rank. The ranker's scores
// are unbounded, so they are squashed into [0, 1) with rank/(rank+1)
// before fusion; scale calibrates the squash against the other
// strategies' native [0,1] scores.
type LexicalStrategy struct {
	index store.LexicalIndex
	scale float64
}

var _ Strategy = (*LexicalStrategy)(nil)

// NewLexicalStrategy creates a lexical matcher. A non-positive scale
// defaults to 1.
func NewLexicalStrategy(index store.LexicalIndex, scale float64) *LexicalStrategy {
	if scale <= 0 {
		scale = 1
	}
	return &LexicalStrategy{index: index, scale: scale}
}

// Kind returns StrategyLexical.
func (s *LexicalStrategy) Kind() StrategyKind { return StrategyLexical }

// Search ranks the tenant's chunks and normalizes each rank into [0, 1).
func (s *LexicalStrategy) Search(ctx context.Context, tenantID, query string, limit int) ([]*Result, error) {
	hits, err := s.index.Rank(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(hits))
	for _, hit := range hits {
		scaled := hit.Rank * s.scale
		results = append(results, &Result{
			ChunkID:  hit.ChunkID,
			Score:    scaled / (scaled + 1),
			Strategy: StrategyLexical,
		})
	}
	return results, nil
}
