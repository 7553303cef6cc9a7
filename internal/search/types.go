// Package search implements hybrid retrieval: three independent
// matching strategies run in parallel and their results are fused into
// a single weighted ranking.
package search

import "context"

// StrategyKind identifies a retrieval strategy in results and logs.
type StrategyKind string

const (
	StrategyKeyword  StrategyKind = "keyword"
	StrategySemantic StrategyKind = "semantic"
	StrategyLexical  StrategyKind = "lexical"
)

// Result is a single (chunk, score) pair produced by one strategy.
// Scores are normalized to [0, 1] before fusion; a strategy may emit
// multiple entries for the same chunk and fusion accumulates them.
type Result struct {
	ChunkID  string
	Score    float64
	Strategy StrategyKind
}

// Strategy is one retrieval method over a tenant's corpus.
// A failing strategy returns an error; the engine degrades it to an
// empty contribution rather than failing the whole search.
type Strategy interface {
	Kind() StrategyKind
	Search(ctx context.Context, tenantID, query string, limit int) ([]*Result, error)
}

// FusedResult is a chunk's final standing after fusion.
type FusedResult struct {
	ChunkID string
	// Score is the fused relevance in [0, 1].
	Score float64
	// Strategies lists the distinct strategies that contributed.
	Strategies []StrategyKind
}
