package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

const (
	// TextStopFilterName is the registry name of the stop word filter.
	TextStopFilterName = "civica_stop"

	// TextAnalyzerName is the registry name of the content analyzer.
	TextAnalyzerName = "civica_text"
)

func init() {
	_ = registry.RegisterTokenFilter(TextStopFilterName, stopFilterConstructor)
}

// romanianStopWords are function words excluded from lexical ranking.
// The corpus is Romanian legal and fiscal text.
var romanianStopWords = map[string]struct{}{
	"si": {}, "și": {}, "sau": {}, "dar": {}, "de": {}, "la": {},
	"cu": {}, "in": {}, "în": {}, "pe": {}, "din": {}, "ce": {},
	"care": {}, "este": {}, "sunt": {}, "a": {}, "al": {}, "ale": {},
	"un": {}, "o": {}, "se": {}, "sa": {}, "să": {}, "nu": {},
	"pentru": {}, "prin": {}, "dupa": {}, "după": {}, "mai": {},
	"fi": {}, "fie": {}, "cum": {}, "cand": {}, "când": {},
	"unde": {}, "acest": {}, "această": {}, "aceasta": {},
}

type stopFilter struct{}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		if _, stop := romanianStopWords[string(tok.Term)]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func stopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{}, nil
}

// BleveLexicalIndex implements LexicalIndex on Bleve full-text search.
// Tenant scoping is a keyword-analyzed tenant_id field combined with the
// content match in a conjunction query.
type BleveLexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

var _ LexicalIndex = (*BleveLexicalIndex)(nil)

type lexicalDocument struct {
	TenantID string `json:"tenant_id"`
	Content  string `json:"content"`
}

// NewBleveLexicalIndex opens or creates a lexical index at path.
// An empty path creates an in-memory index for tests.
func NewBleveLexicalIndex(path string) (*BleveLexicalIndex, error) {
	indexMapping, err := createLexicalMapping()
	if err != nil {
		return nil, cerrors.StoreError("create lexical index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, cerrors.StoreError("create lexical index directory", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, cerrors.StoreError("open lexical index", err)
	}

	return &BleveLexicalIndex{index: idx}, nil
}

func createLexicalMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			TextStopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = TextAnalyzerName

	// tenant_id must match exactly, never be tokenized.
	tenantField := bleve.NewTextFieldMapping()
	tenantField.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("tenant_id", tenantField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = TextAnalyzerName

	return indexMapping, nil
}

// Index adds documents in a single batch.
func (b *BleveLexicalIndex) Index(ctx context.Context, docs []*LexicalDoc) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return cerrors.StoreError("lexical index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		entry := lexicalDocument{TenantID: doc.TenantID, Content: doc.Content}
		if err := batch.Index(doc.ID, entry); err != nil {
			return cerrors.StoreError("index document "+doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return cerrors.StoreError("execute index batch", err)
	}
	return nil
}

// Rank returns up to limit hits for a tenant, ordered by descending rank.
func (b *BleveLexicalIndex) Rank(ctx context.Context, tenantID, query string, limit int) ([]*LexicalResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, cerrors.StoreError("lexical index is closed", nil)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	tenantQuery := bleve.NewTermQuery(tenantID)
	tenantQuery.SetField("tenant_id")

	conjunction := bleve.NewConjunctionQuery(matchQuery, tenantQuery)

	req := bleve.NewSearchRequest(conjunction)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, cerrors.StoreError("lexical search", err)
	}

	results := make([]*LexicalResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &LexicalResult{ChunkID: hit.ID, Rank: hit.Score})
	}
	return results, nil
}

// Delete removes documents by ID.
func (b *BleveLexicalIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return cerrors.StoreError("lexical index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return cerrors.StoreError("execute delete batch", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (b *BleveLexicalIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, cerrors.StoreError("lexical index is closed", nil)
	}
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
