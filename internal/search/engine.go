package search

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Engine runs all strategies in parallel and fuses their results.
// A failing strategy is logged and degraded to an empty contribution;
// the search fails only when the context is canceled.
type Engine struct {
	strategies []Strategy
	weights    FusionWeights
	limit      int
	logger     *slog.Logger
}

// NewEngine creates a hybrid search engine. limit caps both each
// strategy's contribution and the fused output.
func NewEngine(strategies []Strategy, weights FusionWeights, limit int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		strategies: strategies,
		weights:    weights,
		limit:      limit,
		logger:     logger,
	}
}

// Search fans the query out to every strategy concurrently and returns
// the fused ranking. Results are collected in strategy registration
// order so fusion's tie-breaking stays deterministic.
func (e *Engine) Search(ctx context.Context, tenantID, query string) ([]*FusedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	perStrategy := make([][]*Result, len(e.strategies))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, strat := range e.strategies {
		g.Go(func() error {
			results, err := strat.Search(gctx, tenantID, query, e.limit)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("search strategy failed, degrading to empty",
					slog.String("strategy", string(strat.Kind())),
					slog.String("tenant_id", tenantID),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			perStrategy[i] = results
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []*Result
	for _, results := range perStrategy {
		combined = append(combined, results...)
	}

	fused := Fuse(combined, e.weights, e.limit)
	e.logger.Debug("hybrid search complete",
		slog.String("tenant_id", tenantID),
		slog.Int("raw_results", len(combined)),
		slog.Int("fused_results", len(fused)))
	return fused, nil
}
