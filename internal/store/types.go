// Package store provides persistence for tenants, documents, and chunks
// (SQLite), plus the tenant-scoped vector index (HNSW) and lexical index
// (Bleve) the retrieval strategies search against.
package store

import (
	"context"
	"fmt"
	"time"
)

// Tenant is the isolation boundary. Every chunk, cache entry, and query is
// scoped to exactly one tenant. Identity is immutable once created;
// deactivation does not delete data.
type Tenant struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Document is an ingested source file owned by a tenant.
type Document struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// Chunk is the unit of retrievable text. Read-only to the retrieval core.
type Chunk struct {
	ID           string
	DocumentID   string
	TenantID     string
	DocumentName string
	Index        int // sequential position within the document
	Page         int // 0 when unknown
	Content      string
	Embedding    []float32
	Metadata     map[string]string
	CreatedAt    time.Time
}

// TenantStore persists tenant records.
type TenantStore interface {
	SaveTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	// DeactivateTenant marks the tenant inactive without deleting data.
	DeactivateTenant(ctx context.Context, id string) error
}

// ChunkStore persists documents and chunks.
type ChunkStore interface {
	SaveDocument(ctx context.Context, d *Document) error
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	// GetChunks batch-fetches chunks by ID, preserving the input order.
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error)
	// ListChunksByTenant returns all chunks for a tenant, ordered by
	// document and chunk index. Used by the keyword matcher scan and by
	// index rebuilds at startup.
	ListChunksByTenant(ctx context.Context, tenantID string) ([]*Chunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	CountDocuments(ctx context.Context, tenantID string) (int, error)
	CountChunks(ctx context.Context, tenantID string) (int, error)
	Close() error
}

// VectorResult is a single nearest-neighbor hit.
type VectorResult struct {
	ChunkID  string
	Distance float32 // cosine distance, lower is more similar
}

// VectorIndex provides tenant-scoped nearest-neighbor lookup.
type VectorIndex interface {
	// Add inserts vectors under a tenant. Existing IDs are replaced.
	Add(ctx context.Context, tenantID string, ids []string, vectors [][]float32) error

	// Search returns up to limit chunks whose cosine distance to the query
	// is strictly below maxDistance, ordered by ascending distance.
	Search(ctx context.Context, tenantID string, query []float32, maxDistance float64, limit int) ([]*VectorResult, error)

	Delete(ctx context.Context, tenantID string, ids []string) error
	Count(tenantID string) int
	Close() error
}

// LexicalDoc is a document to be indexed for lexical ranking.
type LexicalDoc struct {
	ID       string
	TenantID string
	Content  string
}

// LexicalResult is a ranked full-text hit. Rank is an opaque relevance
// score in [0, +inf) from the underlying ranker.
type LexicalResult struct {
	ChunkID string
	Rank    float64
}

// LexicalIndex provides tenant-scoped ranked full-text search.
type LexicalIndex interface {
	Index(ctx context.Context, docs []*LexicalDoc) error
	// Rank returns up to limit hits ordered by descending rank.
	Rank(ctx context.Context, tenantID, query string, limit int) ([]*LexicalResult, error)
	Delete(ctx context.Context, ids []string) error
	Count() (uint64, error)
	Close() error
}

// ErrDimensionMismatch indicates an embedding dimension mismatch between
// a vector and the configured index dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
