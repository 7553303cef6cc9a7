package store

import (
	"context"
	"math"
	"sync"

	"github.com/coder/hnsw"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

// HNSWIndex implements VectorIndex with one in-memory HNSW graph per
// tenant. Graphs are rebuilt at startup from embeddings persisted in
// the chunk store, so the index itself never touches disk.
//
// Deletion is lazy: removed IDs are tombstoned and filtered at search
// time, the same trade HNSW libraries usually make because true graph
// removal degrades recall.
type HNSWIndex struct {
	dimensions int

	mu      sync.RWMutex
	tenants map[string]*tenantGraph
}

var _ VectorIndex = (*HNSWIndex)(nil)

type tenantGraph struct {
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64 // chunk ID -> graph key
	keyMap  map[uint64]string // graph key -> chunk ID
	deleted map[uint64]bool
	nextKey uint64
}

// NewHNSWIndex creates an empty vector index expecting vectors of the
// given dimension.
func NewHNSWIndex(dimensions int) *HNSWIndex {
	return &HNSWIndex{
		dimensions: dimensions,
		tenants:    make(map[string]*tenantGraph),
	}
}

func (idx *HNSWIndex) tenant(tenantID string) *tenantGraph {
	if tg, ok := idx.tenants[tenantID]; ok {
		return tg
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.Ml = 0.25
	g.EfSearch = 50
	tg := &tenantGraph{
		graph:   g,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		deleted: make(map[uint64]bool),
	}
	idx.tenants[tenantID] = tg
	return tg
}

// Add inserts vectors under a tenant. Re-adding an existing chunk ID
// tombstones the old node and inserts a fresh one.
func (idx *HNSWIndex) Add(ctx context.Context, tenantID string, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return cerrors.InternalError("ids and vectors length mismatch", nil)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	tg := idx.tenant(tenantID)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec := vectors[i]
		if len(vec) != idx.dimensions {
			return ErrDimensionMismatch{Expected: idx.dimensions, Got: len(vec)}
		}

		if old, ok := tg.idMap[id]; ok {
			tg.deleted[old] = true
			delete(tg.keyMap, old)
		}

		normalized := make([]float32, len(vec))
		copy(normalized, vec)
		normalizeVector(normalized)

		key := tg.nextKey
		tg.nextKey++
		tg.graph.Add(hnsw.MakeNode(key, normalized))
		tg.idMap[id] = key
		tg.keyMap[key] = id
	}
	return nil
}

// Search returns up to limit chunks with cosine distance strictly below
// maxDistance, ordered by ascending distance.
func (idx *HNSWIndex) Search(ctx context.Context, tenantID string, query []float32, maxDistance float64, limit int) ([]*VectorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != idx.dimensions {
		return nil, ErrDimensionMismatch{Expected: idx.dimensions, Got: len(query)}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tg, ok := idx.tenants[tenantID]
	if !ok || tg.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVector(normalized)

	// Over-fetch to compensate for tombstoned nodes in the result set.
	k := limit + len(tg.deleted)
	if k > tg.graph.Len() {
		k = tg.graph.Len()
	}

	nodes := tg.graph.Search(normalized, k)
	results := make([]*VectorResult, 0, limit)
	for _, node := range nodes {
		if tg.deleted[node.Key] {
			continue
		}
		chunkID, ok := tg.keyMap[node.Key]
		if !ok {
			continue
		}
		dist := hnsw.CosineDistance(normalized, node.Value)
		if float64(dist) >= maxDistance {
			continue
		}
		results = append(results, &VectorResult{ChunkID: chunkID, Distance: dist})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Delete tombstones the given chunk IDs for a tenant.
func (idx *HNSWIndex) Delete(ctx context.Context, tenantID string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	tg, ok := idx.tenants[tenantID]
	if !ok {
		return nil
	}
	for _, id := range ids {
		key, ok := tg.idMap[id]
		if !ok {
			continue
		}
		tg.deleted[key] = true
		delete(tg.idMap, id)
		delete(tg.keyMap, key)
	}
	return nil
}

// Count returns the number of live vectors for a tenant.
func (idx *HNSWIndex) Count(tenantID string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tg, ok := idx.tenants[tenantID]
	if !ok {
		return 0
	}
	return len(tg.idMap)
}

// Close releases all tenant graphs.
func (idx *HNSWIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tenants = make(map[string]*tenantGraph)
	return nil
}

// normalizeVector scales v to unit length in place. Zero vectors are
// left untouched.
func normalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
