package search

import (
	"context"
	"math"
	"strings"

	"github.com/civica-ai/civica/internal/store"
)

// minTermLength filters noise words; shorter terms match too broadly.
const minTermLength = 3

// KeywordStrategy scores chunks by term density. Each query term is
// matched independently, so a chunk containing several terms appears
// once per term; fusion rewards that accumulation.
type KeywordStrategy struct {
	chunks store.ChunkStore
}

var _ Strategy = (*KeywordStrategy)(nil)

// NewKeywordStrategy creates a keyword matcher over the chunk store.
func NewKeywordStrategy(chunks store.ChunkStore) *KeywordStrategy {
	return &KeywordStrategy{chunks: chunks}
}

// Kind returns StrategyKeyword.
func (s *KeywordStrategy) Kind() StrategyKind { return StrategyKeyword }

// Search scans the tenant's chunks for each query term, scoring matches
// by term density. Each term contributes up to limit entries.
func (s *KeywordStrategy) Search(ctx context.Context, tenantID, query string, limit int) ([]*Result, error) {
	terms := extractTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	chunks, err := s.chunks.ListChunksByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found := 0
		for _, chunk := range chunks {
			if found >= limit {
				break
			}
			content := strings.ToLower(chunk.Content)
			count := strings.Count(content, term)
			if count == 0 {
				continue
			}
			words := len(strings.Fields(content))
			if words == 0 {
				continue
			}
			density := float64(count) / float64(words)
			score := math.Min(0.9, density*10)
			results = append(results, &Result{
				ChunkID:  chunk.ID,
				Score:    score,
				Strategy: StrategyKeyword,
			})
			found++
		}
	}
	return results, nil
}

// extractTerms lowercases the query and keeps terms longer than two runes.
func extractTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= minTermLength {
			terms = append(terms, f)
		}
	}
	return terms
}
