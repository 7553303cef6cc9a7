package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/civica-ai/civica/internal/errors"
	"github.com/civica-ai/civica/internal/store"
)

// memStore is an in-memory TenantStore + ChunkStore.
type memStore struct {
	mu      sync.Mutex
	tenants map[string]*store.Tenant
	docs    []*store.Document
	chunks  []*store.Chunk
}

func newMemStore(tenants ...*store.Tenant) *memStore {
	m := &memStore{tenants: map[string]*store.Tenant{}}
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
	return m
}

func (m *memStore) SaveTenant(_ context.Context, t *store.Tenant) error {
	m.tenants[t.ID] = t
	return nil
}

func (m *memStore) GetTenant(_ context.Context, id string) (*store.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, cerrors.TenantNotFound(id)
	}
	return t, nil
}

func (m *memStore) ListTenants(context.Context) ([]*store.Tenant, error) { return nil, nil }
func (m *memStore) DeactivateTenant(context.Context, string) error       { return nil }

func (m *memStore) SaveDocument(_ context.Context, d *store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, d)
	return nil
}

func (m *memStore) SaveChunks(_ context.Context, chunks []*store.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memStore) GetChunk(context.Context, string) (*store.Chunk, error) { return nil, nil }
func (m *memStore) GetChunks(context.Context, []string) ([]*store.Chunk, error) {
	return nil, nil
}

func (m *memStore) ListChunksByTenant(_ context.Context, tenantID string) ([]*store.Chunk, error) {
	var out []*store.Chunk
	for _, c := range m.chunks {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) DeleteChunksByDocument(_ context.Context, documentID string) error {
	var kept []*store.Chunk
	for _, c := range m.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *memStore) CountDocuments(context.Context, string) (int, error) { return len(m.docs), nil }
func (m *memStore) CountChunks(context.Context, string) (int, error)    { return len(m.chunks), nil }
func (m *memStore) Close() error                                        { return nil }

// recordingVectorIndex remembers added and deleted IDs.
type recordingVectorIndex struct {
	mu      sync.Mutex
	added   map[string][]string
	deleted []string
}

func (r *recordingVectorIndex) Add(_ context.Context, tenantID string, ids []string, vectors [][]float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.added == nil {
		r.added = map[string][]string{}
	}
	if len(ids) != len(vectors) {
		return cerrors.InternalError("length mismatch", nil)
	}
	r.added[tenantID] = append(r.added[tenantID], ids...)
	return nil
}

func (r *recordingVectorIndex) Search(context.Context, string, []float32, float64, int) ([]*store.VectorResult, error) {
	return nil, nil
}

func (r *recordingVectorIndex) Delete(_ context.Context, _ string, ids []string) error {
	r.deleted = append(r.deleted, ids...)
	return nil
}

func (r *recordingVectorIndex) Count(string) int { return 0 }
func (r *recordingVectorIndex) Close() error     { return nil }

// recordingLexicalIndex remembers indexed and deleted docs.
type recordingLexicalIndex struct {
	mu      sync.Mutex
	indexed []*store.LexicalDoc
	deleted []string
}

func (r *recordingLexicalIndex) Index(_ context.Context, docs []*store.LexicalDoc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, docs...)
	return nil
}

func (r *recordingLexicalIndex) Rank(context.Context, string, string, int) ([]*store.LexicalResult, error) {
	return nil, nil
}

func (r *recordingLexicalIndex) Delete(_ context.Context, ids []string) error {
	r.deleted = append(r.deleted, ids...)
	return nil
}

func (r *recordingLexicalIndex) Count() (uint64, error) { return 0, nil }
func (r *recordingLexicalIndex) Close() error           { return nil }

// batchEmbedder returns deterministic vectors.
type batchEmbedder struct{}

func (batchEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (batchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

func (batchEmbedder) Dimensions() int   { return 3 }
func (batchEmbedder) ModelName() string { return "batch" }
func (batchEmbedder) Close() error      { return nil }

func newTestIngestor(ms *memStore) (*Ingestor, *recordingVectorIndex, *recordingLexicalIndex) {
	vec := &recordingVectorIndex{}
	lex := &recordingLexicalIndex{}
	ing := New(ms, ms, vec, lex, batchEmbedder{}, Config{
		ChunkSize:    80,
		ChunkOverlap: 0,
		BatchSize:    2,
		Workers:      3,
	}, nil)
	return ing, vec, lex
}

func TestIngestDocument_FullPipeline(t *testing.T) {
	ms := newMemStore(&store.Tenant{ID: "t1", Name: "Cluj", Active: true})
	ing, vec, lex := newTestIngestor(ms)

	text := strings.Repeat("articol despre impozite locale ", 20)
	doc, n, err := ing.IngestDocument(context.Background(), "t1", "cod_fiscal.txt", text)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Greater(t, n, 1)

	// Every chunk is persisted, embedded, and indexed in both indexes.
	chunks, err := ms.ListChunksByTenant(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, chunks, n)
	for i, c := range chunks {
		assert.Equal(t, doc.ID, c.DocumentID)
		assert.Equal(t, "cod_fiscal.txt", c.DocumentName)
		assert.Equal(t, i, c.Index)
		assert.Len(t, c.Embedding, 3)
	}
	assert.Len(t, vec.added["t1"], n)
	assert.Len(t, lex.indexed, n)
}

func TestIngestDocument_UnknownTenant(t *testing.T) {
	ing, _, _ := newTestIngestor(newMemStore())

	_, _, err := ing.IngestDocument(context.Background(), "ghost", "doc.txt", "text oarecare")
	assert.Equal(t, cerrors.ErrCodeTenantNotFound, cerrors.CodeOf(err))
}

func TestIngestDocument_InactiveTenant(t *testing.T) {
	ms := newMemStore(&store.Tenant{ID: "t1", Name: "Fost", Active: false})
	ing, _, _ := newTestIngestor(ms)

	_, _, err := ing.IngestDocument(context.Background(), "t1", "doc.txt", "text oarecare")
	assert.Equal(t, cerrors.ErrCodeTenantInactive, cerrors.CodeOf(err))
}

func TestIngestDocument_EmptyText(t *testing.T) {
	ms := newMemStore(&store.Tenant{ID: "t1", Name: "Cluj", Active: true})
	ing, _, _ := newTestIngestor(ms)

	_, _, err := ing.IngestDocument(context.Background(), "t1", "doc.txt", "   ")
	assert.Equal(t, cerrors.ErrCodeInvalidInput, cerrors.CodeOf(err))
}

func TestDeleteDocument_RemovesEverywhere(t *testing.T) {
	ms := newMemStore(&store.Tenant{ID: "t1", Name: "Cluj", Active: true})
	ing, vec, lex := newTestIngestor(ms)
	ctx := context.Background()

	doc, n, err := ing.IngestDocument(ctx, "t1", "doc.txt", strings.Repeat("impozit local ", 30))
	require.NoError(t, err)

	require.NoError(t, ing.DeleteDocument(ctx, "t1", doc.ID))

	chunks, err := ms.ListChunksByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Len(t, vec.deleted, n)
	assert.Len(t, lex.deleted, n)
}
