package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "civica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_TenantLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tenant := &Tenant{ID: "t1", Name: "Primăria Cluj", Active: true}
	require.NoError(t, s.SaveTenant(ctx, tenant))

	got, err := s.GetTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Primăria Cluj", got.Name)
	assert.True(t, got.Active)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, s.DeactivateTenant(ctx, "t1"))
	got, err = s.GetTenant(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestSQLiteStore_GetTenantNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTenant(context.Background(), "missing")
	require.Error(t, err)

	var coded *cerrors.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, cerrors.ErrCodeTenantNotFound, coded.Code)
}

func TestSQLiteStore_DeactivateMissingTenant(t *testing.T) {
	s := newTestStore(t)

	err := s.DeactivateTenant(context.Background(), "missing")
	assert.Equal(t, cerrors.ErrCodeTenantNotFound, cerrors.CodeOf(err))
}

func TestSQLiteStore_ListTenants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTenant(ctx, &Tenant{ID: "a", Name: "A", Active: true}))
	require.NoError(t, s.SaveTenant(ctx, &Tenant{ID: "b", Name: "B", Active: false}))

	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}

func seedChunks(t *testing.T, s *SQLiteStore, tenantID string, n int) []*Chunk {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SaveTenant(ctx, &Tenant{ID: tenantID, Name: tenantID, Active: true}))
	doc := &Document{ID: tenantID + "-doc", TenantID: tenantID, Name: "hotarare.pdf"}
	require.NoError(t, s.SaveDocument(ctx, doc))

	chunks := make([]*Chunk, n)
	for i := range chunks {
		chunks[i] = &Chunk{
			ID:           doc.ID + "-" + string(rune('a'+i)),
			DocumentID:   doc.ID,
			TenantID:     tenantID,
			DocumentName: doc.Name,
			Index:        i,
			Page:         i + 1,
			Content:      "conținut fiscal",
			Embedding:    []float32{float32(i), 1, 2},
			Metadata:     map[string]string{"lang": "ro"},
		}
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))
	return chunks
}

func TestSQLiteStore_ChunkRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seeded := seedChunks(t, s, "t1", 3)

	got, err := s.GetChunk(context.Background(), seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[1].Content, got.Content)
	assert.Equal(t, seeded[1].Embedding, got.Embedding)
	assert.Equal(t, "ro", got.Metadata["lang"])
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, "hotarare.pdf", got.DocumentName)
}

func TestSQLiteStore_GetChunksPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	seeded := seedChunks(t, s, "t1", 3)

	// Request in reverse plus one missing ID.
	ids := []string{seeded[2].ID, "missing", seeded[0].ID}
	got, err := s.GetChunks(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, seeded[2].ID, got[0].ID)
	assert.Equal(t, seeded[0].ID, got[1].ID)
}

func TestSQLiteStore_ListChunksByTenant(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s, "t1", 3)
	seedChunks(t, s, "t2", 2)

	chunks, err := s.ListChunksByTenant(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, "t1", c.TenantID)
	}
}

func TestSQLiteStore_DeleteChunksByDocument(t *testing.T) {
	s := newTestStore(t)
	seeded := seedChunks(t, s, "t1", 3)
	ctx := context.Background()

	require.NoError(t, s.DeleteChunksByDocument(ctx, seeded[0].DocumentID))

	chunks, err := s.ListChunksByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSQLiteStore_Counts(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s, "t1", 4)
	ctx := context.Background()

	docs, err := s.CountDocuments(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, docs)

	chunks, err := s.CountChunks(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, chunks)

	docs, err = s.CountDocuments(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 0, docs)
}

func TestSQLiteStore_SaveChunksReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	seeded := seedChunks(t, s, "t1", 1)
	ctx := context.Background()

	seeded[0].Content = "conținut actualizat"
	require.NoError(t, s.SaveChunks(ctx, seeded))

	got, err := s.GetChunk(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "conținut actualizat", got.Content)

	n, err := s.CountChunks(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
