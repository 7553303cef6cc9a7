package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/civica-ai/civica/internal/embed"
)

const (
	// responsePrefix namespaces cached answers.
	responsePrefix = "chat:"
	// registryPrefix namespaces per-tenant question-embedding registries.
	registryPrefix = "qembed:"

	// CacheTypeExact marks a hit on the normalized question hash.
	CacheTypeExact = "exact"
	// CacheTypeSemantic marks a hit via embedding similarity.
	CacheTypeSemantic = "similar"
)

// CachedResponse is a stored answer retrieved from the cache.
// Payload is the caller's serialized answer; the cache never inspects it.
type CachedResponse struct {
	Payload    json.RawMessage `json:"payload"`
	CacheType  string          `json:"cache_type"`
	Similarity float64         `json:"similarity"`
}

// registryEntry is one question in a tenant's embedding registry.
type registryEntry struct {
	Question  string    `json:"question"`
	Embedding []float32 `json:"embedding"`
}

// Stats summarizes cache state and configuration.
type Stats struct {
	Entries             int     `json:"entries"`
	RegistryEntries     int     `json:"registry_entries"`
	Hits                int64   `json:"hits"`
	Misses              int64   `json:"misses"`
	TTLSeconds          float64 `json:"ttl_seconds"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	Degraded            bool    `json:"degraded"`
}

// SemanticCache caches answers per tenant with two lookup paths: exact
// (hash of the normalized question) and approximate (cosine similarity
// against previously cached question embeddings).
//
// The cache is strictly best-effort. When the store is missing or
// unhealthy it degrades to always-miss and every write becomes a no-op;
// the answer pipeline never fails because of the cache.
type SemanticCache struct {
	store     CacheStore
	embedder  embed.Embedder
	ttl       time.Duration
	threshold float64
	logger    *slog.Logger

	degraded bool
	hits     atomic.Int64
	misses   atomic.Int64
}

// Options configures the semantic cache.
type Options struct {
	// TTL bounds entry lifetime.
	TTL time.Duration
	// SimilarityThreshold is the minimum cosine similarity for an
	// approximate hit.
	SimilarityThreshold float64
}

// NewSemanticCache creates the cache. A nil store or a failing ping
// puts the cache in degraded mode.
func NewSemanticCache(store CacheStore, embedder embed.Embedder, opts Options, logger *slog.Logger) *SemanticCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &SemanticCache{
		store:     store,
		embedder:  embedder,
		ttl:       opts.TTL,
		threshold: opts.SimilarityThreshold,
		logger:    logger,
	}
	if store == nil {
		c.degraded = true
	} else if err := store.Ping(); err != nil {
		c.degraded = true
		logger.Warn("cache store unavailable, running without cache",
			slog.String("error", err.Error()))
	}
	return c
}

// Degraded reports whether the cache is in always-miss mode.
func (c *SemanticCache) Degraded() bool { return c.degraded }

// normalizeQuestion trims and lowercases so formatting variants share
// one cache entry.
func normalizeQuestion(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// responseKey derives the exact-lookup key for a (question, tenant) pair.
func responseKey(tenantID, question string) string {
	h := sha256.Sum256([]byte(normalizeQuestion(question) + ":" + tenantID))
	return responsePrefix + hex.EncodeToString(h[:])
}

// registryKey derives the embedding-registry key for a tenant.
func registryKey(tenantID string) string {
	return registryPrefix + tenantID
}

// Lookup finds a cached answer for the question, trying the exact hash
// first and falling back to embedding similarity. Returns (nil, false)
// on any miss or cache failure.
func (c *SemanticCache) Lookup(ctx context.Context, tenantID, question string) (*CachedResponse, bool) {
	if c.degraded {
		return nil, false
	}

	key := responseKey(tenantID, question)
	if value, ok, err := c.store.Get(key); err != nil {
		c.logger.Warn("cache read failed", slog.String("error", err.Error()))
		c.misses.Add(1)
		return nil, false
	} else if ok {
		var payload json.RawMessage
		if err := json.Unmarshal(value, &payload); err != nil {
			c.misses.Add(1)
			return nil, false
		}
		c.hits.Add(1)
		return &CachedResponse{Payload: payload, CacheType: CacheTypeExact, Similarity: 1.0}, true
	}

	resp, ok := c.lookupSimilar(ctx, tenantID, question)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return resp, true
}

// lookupSimilar embeds the question and scans the tenant's registry for
// the most similar previously cached question.
func (c *SemanticCache) lookupSimilar(ctx context.Context, tenantID, question string) (*CachedResponse, bool) {
	if c.embedder == nil {
		return nil, false
	}

	queryVec, err := c.embedder.Embed(ctx, normalizeQuestion(question))
	if err != nil {
		c.logger.Warn("cache similarity lookup skipped, embedding failed",
			slog.String("error", err.Error()))
		return nil, false
	}

	fields, err := c.store.GetFields(registryKey(tenantID))
	if err != nil {
		c.logger.Warn("cache registry read failed", slog.String("error", err.Error()))
		return nil, false
	}

	var bestKey string
	bestSim := -1.0
	for key, raw := range fields {
		var entry registryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		sim := cosineSimilarity(queryVec, entry.Embedding)
		if sim > bestSim {
			bestSim = sim
			bestKey = key
		}
	}
	if bestKey == "" || bestSim < c.threshold {
		return nil, false
	}

	value, ok, err := c.store.Get(bestKey)
	if err != nil || !ok {
		// The answer expired before its registry entry; drop the stale
		// registry field so the next scan skips it.
		_ = c.store.Delete(registryKey(tenantID) + fieldSep + bestKey)
		return nil, false
	}

	var payload json.RawMessage
	if err := json.Unmarshal(value, &payload); err != nil {
		return nil, false
	}
	return &CachedResponse{Payload: payload, CacheType: CacheTypeSemantic, Similarity: bestSim}, true
}

// Store caches an answer for the question. Best-effort: failures are
// logged and swallowed, never returned to the answer pipeline.
func (c *SemanticCache) Store(ctx context.Context, tenantID, question string, payload json.RawMessage) {
	if c.degraded {
		return
	}

	key := responseKey(tenantID, question)
	value, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("cache write skipped, payload not serializable",
			slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(key, value, c.ttl); err != nil {
		c.logger.Warn("cache write failed", slog.String("error", err.Error()))
		return
	}

	if c.embedder == nil {
		return
	}
	vec, err := c.embedder.Embed(ctx, normalizeQuestion(question))
	if err != nil {
		// The exact entry is already written; similarity lookup just
		// won't find this question.
		c.logger.Debug("registry write skipped, embedding failed",
			slog.String("error", err.Error()))
		return
	}
	entry, err := json.Marshal(registryEntry{
		Question:  normalizeQuestion(question),
		Embedding: vec,
	})
	if err != nil {
		return
	}
	if err := c.store.SetField(registryKey(tenantID), key, entry, c.ttl); err != nil {
		c.logger.Warn("cache registry write failed", slog.String("error", err.Error()))
	}
}

// Clear removes all cached answers and registry entries for a tenant.
func (c *SemanticCache) Clear(tenantID string) error {
	if c.degraded {
		return nil
	}

	fields, err := c.store.GetFields(registryKey(tenantID))
	if err != nil {
		return err
	}
	for key := range fields {
		if err := c.store.Delete(key); err != nil {
			return err
		}
	}
	return c.store.DeleteNamespace(registryKey(tenantID))
}

// FlushAll removes every entry for every tenant.
func (c *SemanticCache) FlushAll() error {
	if c.degraded {
		return nil
	}
	return c.store.FlushAll()
}

// Stats reports entry counts, hit/miss totals, and the configured TTL
// and similarity threshold.
func (c *SemanticCache) Stats() Stats {
	s := Stats{
		Hits:                c.hits.Load(),
		Misses:              c.misses.Load(),
		TTLSeconds:          c.ttl.Seconds(),
		SimilarityThreshold: c.threshold,
		Degraded:            c.degraded,
	}
	if c.degraded {
		return s
	}
	if n, err := c.store.CountPrefix(responsePrefix); err == nil {
		s.Entries = n
	}
	if n, err := c.store.CountPrefix(registryPrefix); err == nil {
		s.RegistryEntries = n
	}
	return s
}

// Close closes the underlying store.
func (c *SemanticCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// cosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths and zero vectors yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
