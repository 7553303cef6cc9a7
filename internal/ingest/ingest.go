package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/civica-ai/civica/internal/embed"
	cerrors "github.com/civica-ai/civica/internal/errors"
	"github.com/civica-ai/civica/internal/store"
)

// Ingestor chunks, embeds, and indexes documents for a tenant.
// Embedding runs on a bounded worker pool; persistence and indexing
// happen once all batches succeed, so a failed ingest leaves no
// partial document behind.
type Ingestor struct {
	tenants  store.TenantStore
	chunks   store.ChunkStore
	vectors  store.VectorIndex
	lexical  store.LexicalIndex
	embedder embed.Embedder

	chunker   *Chunker
	batchSize int
	workers   int
	logger    *slog.Logger
}

// Config configures ingestion.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Workers      int
}

// New creates an ingestor.
func New(
	tenants store.TenantStore,
	chunks store.ChunkStore,
	vectors store.VectorIndex,
	lexical store.LexicalIndex,
	embedder embed.Embedder,
	cfg Config,
	logger *slog.Logger,
) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Ingestor{
		tenants:   tenants,
		chunks:    chunks,
		vectors:   vectors,
		lexical:   lexical,
		embedder:  embedder,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		logger:    logger,
	}
}

// IngestDocument ingests one document's extracted text for a tenant.
// Returns the document record and the number of chunks created.
func (in *Ingestor) IngestDocument(ctx context.Context, tenantID, name, text string) (*store.Document, int, error) {
	tenant, err := in.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if !tenant.Active {
		return nil, 0, cerrors.TenantInactive(tenantID)
	}

	pieces := in.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, 0, cerrors.ValidationError("document contains no text", nil)
	}

	doc := &store.Document{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Name:     name,
	}

	chunks := make([]*store.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &store.Chunk{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			TenantID:     tenantID,
			DocumentName: name,
			Index:        i,
			Page:         piece.Page,
			Content:      piece.Content,
		}
	}

	if err := in.embedChunks(ctx, chunks); err != nil {
		return nil, 0, err
	}

	if err := in.chunks.SaveDocument(ctx, doc); err != nil {
		return nil, 0, err
	}
	if err := in.chunks.SaveChunks(ctx, chunks); err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	lexDocs := make([]*store.LexicalDoc, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vectors[i] = c.Embedding
		lexDocs[i] = &store.LexicalDoc{ID: c.ID, TenantID: tenantID, Content: c.Content}
	}
	if err := in.vectors.Add(ctx, tenantID, ids, vectors); err != nil {
		return nil, 0, err
	}
	if err := in.lexical.Index(ctx, lexDocs); err != nil {
		return nil, 0, err
	}

	in.logger.Info("document ingested",
		slog.String("tenant_id", tenantID),
		slog.String("document", name),
		slog.Int("chunks", len(chunks)))
	return doc, len(chunks), nil
}

// embedChunks embeds all chunks in parallel batches on a worker pool.
func (in *Ingestor) embedChunks(ctx context.Context, chunks []*store.Chunk) error {
	pool, err := ants.NewPool(in.workers)
	if err != nil {
		return cerrors.InternalError("create worker pool", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(chunks); start += in.batchSize {
		end := start + in.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			vecs, err := in.embedder.EmbedBatch(ctx, texts)
			if err == nil && len(vecs) != len(batch) {
				err = cerrors.InternalError("embedding batch size mismatch", nil)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			for i, c := range batch {
				c.Embedding = vecs[i]
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = cerrors.InternalError("submit embedding batch", submitErr)
			}
			mu.Unlock()
			break
		}
	}

	wg.Wait()
	return firstErr
}

// DeleteDocument removes a document's chunks from every store and index.
func (in *Ingestor) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	chunks, err := in.chunks.ListChunksByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	var ids []string
	for _, c := range chunks {
		if c.DocumentID == documentID {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if err := in.chunks.DeleteChunksByDocument(ctx, documentID); err != nil {
		return err
	}
	if err := in.vectors.Delete(ctx, tenantID, ids); err != nil {
		return err
	}
	return in.lexical.Delete(ctx, ids)
}
