package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/civica-ai/civica/internal/cache"
	"github.com/civica-ai/civica/internal/config"
	"github.com/civica-ai/civica/internal/embed"
	"github.com/civica-ai/civica/internal/generate"
	"github.com/civica-ai/civica/internal/ingest"
	"github.com/civica-ai/civica/internal/respond"
	"github.com/civica-ai/civica/internal/search"
	"github.com/civica-ai/civica/internal/store"
)

// app wires every component for a CLI invocation. The vector index is
// in-memory and rebuilt from persisted embeddings on open.
type app struct {
	cfg *config.Config

	store        *store.SQLiteStore
	vectors      *store.HNSWIndex
	lexical      *store.BleveLexicalIndex
	embedder     embed.Embedder
	generator    generate.Generator
	cache        *cache.SemanticCache
	engine       *search.Engine
	orchestrator *respond.Orchestrator
	ingestor     *ingest.Ingestor
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var err error
	a.store, err = store.NewSQLiteStore(filepath.Join(cfg.Paths.DataDir, "civica.db"))
	if err != nil {
		return nil, err
	}

	a.lexical, err = store.NewBleveLexicalIndex(filepath.Join(cfg.Paths.DataDir, "lexical.bleve"))
	if err != nil {
		a.close()
		return nil, err
	}

	a.vectors = store.NewHNSWIndex(cfg.Embeddings.Dimensions)
	if err := a.rebuildVectors(ctx); err != nil {
		a.close()
		return nil, err
	}

	ollamaEmbedder, err := embed.NewOllamaEmbedder(embed.OllamaConfig{
		Host:       cfg.Embeddings.Host,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.embedder, err = embed.NewCachedEmbedder(ollamaEmbedder, cfg.Embeddings.CacheSize)
	if err != nil {
		a.close()
		return nil, err
	}

	a.generator, err = generate.NewOllamaGenerator(generate.Config{
		Host:        cfg.Generation.Host,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	// A missing cache store degrades to always-miss instead of failing
	// the command.
	var cacheStore cache.CacheStore
	if bs, err := cache.NewBadgerStore(filepath.Join(cfg.Paths.DataDir, "cache")); err != nil {
		slog.Warn("cache store unavailable, continuing without cache",
			slog.String("error", err.Error()))
	} else {
		cacheStore = bs
	}
	a.cache = cache.NewSemanticCache(cacheStore, a.embedder, cache.Options{
		TTL:                 cfg.Cache.TTL,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
	}, slog.Default())

	strategies := []search.Strategy{
		search.NewKeywordStrategy(a.store),
		search.NewSemanticStrategy(a.embedder, a.vectors, cfg.Search.DistanceThreshold),
		search.NewLexicalStrategy(a.lexical, cfg.Search.LexicalNormScale),
	}
	weights := search.FusionWeights{
		Keyword:  cfg.Search.KeywordWeight,
		Semantic: cfg.Search.SemanticWeight,
		Lexical:  cfg.Search.LexicalWeight,
		Bonus:    cfg.Search.StrategyBonus,
	}
	a.engine = search.NewEngine(strategies, weights, cfg.Search.MaxResults, slog.Default())

	a.orchestrator = respond.New(a.store, a.store, a.engine, a.cache, a.generator,
		cfg.Search.ContextBudget, slog.Default())

	a.ingestor = ingest.New(a.store, a.store, a.vectors, a.lexical, a.embedder, ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		BatchSize:    cfg.Embeddings.BatchSize,
		Workers:      cfg.Ingest.Workers,
	}, slog.Default())

	return a, nil
}

// rebuildVectors loads persisted embeddings into the in-memory index.
func (a *app) rebuildVectors(ctx context.Context) error {
	tenants, err := a.store.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		chunks, err := a.store.ListChunksByTenant(ctx, tenant.ID)
		if err != nil {
			return err
		}
		var ids []string
		var vecs [][]float32
		for _, c := range chunks {
			if len(c.Embedding) == 0 {
				continue
			}
			ids = append(ids, c.ID)
			vecs = append(vecs, c.Embedding)
		}
		if len(ids) == 0 {
			continue
		}
		if err := a.vectors.Add(ctx, tenant.ID, ids, vecs); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.generator != nil {
		_ = a.generator.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.lexical != nil {
		_ = a.lexical.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
