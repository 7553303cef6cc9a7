package search

import (
	"context"

	"github.com/civica-ai/civica/internal/embed"
	"github.com/civica-ai/civica/internal/store"
)

// SemanticStrategy scores chunks by embedding similarity. The query is
// embedded once and matched against the tenant's vector index; cosine
// distance converts to score as 1 - distance.
type SemanticStrategy struct {
	embedder embed.Embedder
	vectors  store.VectorIndex
	// maxDistance rejects neighbors at or beyond this cosine distance.
	maxDistance float64
}

var _ Strategy = (*SemanticStrategy)(nil)

// NewSemanticStrategy creates a semantic matcher.
func NewSemanticStrategy(embedder embed.Embedder, vectors store.VectorIndex, maxDistance float64) *SemanticStrategy {
	return &SemanticStrategy{
		embedder:    embedder,
		vectors:     vectors,
		maxDistance: maxDistance,
	}
}

// Kind returns StrategySemantic.
func (s *SemanticStrategy) Kind() StrategyKind { return StrategySemantic }

// Search embeds the query and returns nearest chunks as (1 - distance)
// scores, already ordered by descending similarity.
func (s *SemanticStrategy) Search(ctx context.Context, tenantID, query string, limit int) ([]*Result, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, tenantID, vec, s.maxDistance, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, &Result{
			ChunkID:  hit.ChunkID,
			Score:    1 - float64(hit.Distance),
			Strategy: StrategySemantic,
		})
	}
	return results, nil
}
