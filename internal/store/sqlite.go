package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	cerrors "github.com/civica-ai/civica/internal/errors"
)

// SQLiteStore implements TenantStore and ChunkStore on a single SQLite
// database. WAL mode allows the CLI and tests to share connections.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ TenantStore = (*SQLiteStore)(nil)
	_ ChunkStore  = (*SQLiteStore)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL REFERENCES tenants(id),
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);

CREATE TABLE IF NOT EXISTS chunks (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL REFERENCES documents(id),
	tenant_id     TEXT NOT NULL REFERENCES tenants(id),
	document_name TEXT NOT NULL,
	chunk_index   INTEGER NOT NULL,
	page          INTEGER NOT NULL DEFAULT 0,
	content       TEXT NOT NULL,
	embedding     BLOB,
	metadata      TEXT,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(tenant_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cerrors.StoreError("create data directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cerrors.StoreError("open sqlite database", err)
	}

	// WAL must be set via PRAGMA statements; modernc.org/sqlite ignores
	// some DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, cerrors.StoreError(fmt.Sprintf("apply %s", p), err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, cerrors.StoreError("apply schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveTenant inserts or updates a tenant record.
func (s *SQLiteStore) SaveTenant(ctx context.Context, t *Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active`,
		t.ID, t.Name, boolToInt(t.Active), t.CreatedAt)
	if err != nil {
		return cerrors.StoreError("save tenant", err)
	}
	return nil
}

// GetTenant fetches a tenant by id. Returns a TenantNotFound error when
// no row exists.
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	t := &Tenant{}
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM tenants WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, cerrors.TenantNotFound(id)
	}
	if err != nil {
		return nil, cerrors.StoreError("get tenant", err)
	}
	t.Active = active != 0
	return t, nil
}

// ListTenants returns all tenants ordered by creation time.
func (s *SQLiteStore) ListTenants(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, active, created_at FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, cerrors.StoreError("list tenants", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t := &Tenant{}
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &active, &t.CreatedAt); err != nil {
			return nil, cerrors.StoreError("scan tenant", err)
		}
		t.Active = active != 0
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// DeactivateTenant marks a tenant inactive. Data is retained.
func (s *SQLiteStore) DeactivateTenant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return cerrors.StoreError("deactivate tenant", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerrors.TenantNotFound(id)
	}
	return nil
}

// SaveDocument inserts or updates a document record.
func (s *SQLiteStore) SaveDocument(ctx context.Context, d *Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, tenant_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		d.ID, d.TenantID, d.Name, d.CreatedAt)
	if err != nil {
		return cerrors.StoreError("save document", err)
	}
	return nil
}

// SaveChunks writes chunks in a single transaction. Existing IDs are replaced.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.StoreError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(id, document_id, tenant_id, document_name, chunk_index, page, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return cerrors.StoreError("prepare chunk insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		embedding, err := marshalEmbedding(c.Embedding)
		if err != nil {
			return cerrors.StoreError("encode embedding", err)
		}
		metadata, err := marshalMetadata(c.Metadata)
		if err != nil {
			return cerrors.StoreError("encode metadata", err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.TenantID, c.DocumentName,
			c.Index, c.Page, c.Content, embedding, metadata, c.CreatedAt); err != nil {
			return cerrors.StoreError("insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return cerrors.StoreError("commit chunks", err)
	}
	return nil
}

const chunkColumns = `id, document_id, tenant_id, document_name, chunk_index, page, content, embedding, metadata, created_at`

// GetChunk fetches a single chunk by id.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, cerrors.StoreError(fmt.Sprintf("chunk %s not found", id), nil)
	}
	return c, err
}

// GetChunks batch-fetches chunks, preserving the order of ids.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, cerrors.StoreError("batch get chunks", err)
	}
	defer rows.Close()

	byID := make(map[string]*Chunk, len(ids))
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.StoreError("scan chunks", err)
	}

	result := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// ListChunksByTenant returns all chunks for a tenant ordered by document
// and chunk index.
func (s *SQLiteStore) ListChunksByTenant(ctx context.Context, tenantID string) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE tenant_id = ? ORDER BY document_id, chunk_index`,
		tenantID)
	if err != nil {
		return nil, cerrors.StoreError("list tenant chunks", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunksByDocument removes all chunks belonging to a document.
func (s *SQLiteStore) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return cerrors.StoreError("delete document chunks", err)
	}
	return nil
}

// CountDocuments returns the number of documents owned by a tenant.
func (s *SQLiteStore) CountDocuments(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant_id = ?`, tenantID).Scan(&n)
	if err != nil {
		return 0, cerrors.StoreError("count documents", err)
	}
	return n, nil
}

// CountChunks returns the number of chunks owned by a tenant.
func (s *SQLiteStore) CountChunks(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE tenant_id = ?`, tenantID).Scan(&n)
	if err != nil {
		return 0, cerrors.StoreError("count chunks", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChunk(row scannable) (*Chunk, error) {
	c := &Chunk{}
	var embedding, metadata []byte
	err := row.Scan(&c.ID, &c.DocumentID, &c.TenantID, &c.DocumentName,
		&c.Index, &c.Page, &c.Content, &embedding, &metadata, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, cerrors.StoreError("scan chunk", err)
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &c.Embedding); err != nil {
			return nil, cerrors.StoreError("decode embedding", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, cerrors.StoreError("decode metadata", err)
		}
	}
	return c, nil
}

func marshalEmbedding(v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
