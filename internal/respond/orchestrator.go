package respond

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/civica-ai/civica/internal/cache"
	cerrors "github.com/civica-ai/civica/internal/errors"
	"github.com/civica-ai/civica/internal/generate"
	"github.com/civica-ai/civica/internal/search"
	"github.com/civica-ai/civica/internal/store"
)

// Orchestrator runs the answer pipeline for one question at a time.
// It is safe for concurrent use; all state lives in the injected
// components.
type Orchestrator struct {
	tenants   store.TenantStore
	chunks    store.ChunkStore
	engine    *search.Engine
	cache     *cache.SemanticCache
	generator generate.Generator

	// contextBudget caps the assembled context, in runes.
	contextBudget int
	logger        *slog.Logger
}

// New creates an orchestrator. cache may be nil to run uncached.
func New(
	tenants store.TenantStore,
	chunks store.ChunkStore,
	engine *search.Engine,
	semanticCache *cache.SemanticCache,
	generator generate.Generator,
	contextBudget int,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if contextBudget <= 0 {
		contextBudget = 3000
	}
	return &Orchestrator{
		tenants:       tenants,
		chunks:        chunks,
		engine:        engine,
		cache:         semanticCache,
		generator:     generator,
		contextBudget: contextBudget,
		logger:        logger,
	}
}

// AnswerQuestion answers a question against a tenant's corpus.
//
// The only errors callers see are tenant rejections, input validation,
// and context cancellation. Every downstream failure degrades: a dead
// strategy contributes nothing, a dead cache is bypassed, and a dead
// generator yields the canned technical-error answer.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, tenantID, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, cerrors.ValidationError("question must not be empty", nil)
	}

	tenant, err := o.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, cerrors.TenantInactive(tenantID)
	}

	log := o.logger.With(slog.String("tenant_id", tenantID))

	if o.cache != nil {
		if hit, ok := o.cache.Lookup(ctx, tenantID, question); ok {
			var answer Answer
			if err := json.Unmarshal(hit.Payload, &answer); err == nil {
				answer.CacheType = hit.CacheType
				answer.Similarity = hit.Similarity
				log.Info("answer served from cache",
					slog.String("cache_type", hit.CacheType),
					slog.Float64("similarity", hit.Similarity))
				return &answer, nil
			}
			log.Warn("cached payload unreadable, regenerating",
				slog.String("error", err.Error()))
		}
	}

	fused, err := o.engine.Search(ctx, tenantID, question)
	if err != nil {
		return nil, err
	}

	if len(fused) == 0 {
		log.Info("no relevant chunks found")
		return &Answer{
			Answer:     NoInformationAnswer,
			Sources:    []Source{},
			Confidence: 0.0,
		}, nil
	}

	contextText, sources, confidence, err := o.assembleContext(ctx, fused)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("context assembly failed", slog.String("error", err.Error()))
		return &Answer{
			Answer:     TechnicalErrorAnswer,
			Sources:    []Source{},
			Confidence: 0.0,
		}, nil
	}

	systemPrompt := fmt.Sprintf(systemPromptTemplate, contextText, tenant.Name)
	userPrompt := "Întrebare: " + question

	text, err := o.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("generation failed", slog.String("error", err.Error()))
		return &Answer{
			Answer:     TechnicalErrorAnswer,
			Sources:    []Source{},
			Confidence: 0.0,
		}, nil
	}

	answer := &Answer{
		Answer:     text,
		Sources:    sources,
		Confidence: confidence,
	}

	// Cache writes are skipped on cancellation so an abandoned request
	// never persists a possibly truncated answer.
	if o.cache != nil && ctx.Err() == nil {
		if payload, err := json.Marshal(answer); err == nil {
			o.cache.Store(ctx, tenantID, question, payload)
		}
	}

	log.Info("answer generated",
		slog.Int("sources", len(sources)),
		slog.Float64("confidence", confidence))
	return answer, nil
}

// assembleContext fetches fused chunks and formats them into the prompt
// context, stopping at the rune budget. Confidence is the mean fused
// score of the chunks that made it in.
func (o *Orchestrator) assembleContext(ctx context.Context, fused []*search.FusedResult) (string, []Source, float64, error) {
	ids := make([]string, len(fused))
	scoreByID := make(map[string]float64, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
		scoreByID[f.ChunkID] = f.Score
	}

	chunks, err := o.chunks.GetChunks(ctx, ids)
	if err != nil {
		return "", nil, 0, err
	}
	if len(chunks) == 0 {
		return "", nil, 0, cerrors.StoreError("fused chunks missing from store", nil)
	}

	var parts []string
	var sources []Source
	var scoreSum float64
	used := 0

	for _, chunk := range chunks {
		score := scoreByID[chunk.ID]
		part := formatChunkContext(chunk, score)
		partLen := utf8.RuneCountInString(part)
		if used > 0 && used+partLen > o.contextBudget {
			break
		}
		parts = append(parts, part)
		used += partLen

		sources = append(sources, Source{
			DocumentID:     chunk.DocumentID,
			DocumentName:   chunk.DocumentName,
			Page:           chunk.Page,
			ChunkIndex:     chunk.Index,
			Similarity:     score,
			ContentPreview: preview(chunk.Content),
		})
		scoreSum += score
	}

	contextText := strings.Join(parts, "\n\n---\n\n")
	if runes := []rune(contextText); len(runes) > o.contextBudget {
		contextText = string(runes[:o.contextBudget])
	}
	return contextText, sources, scoreSum / float64(len(sources)), nil
}

// formatChunkContext renders one chunk with its provenance header.
func formatChunkContext(chunk *store.Chunk, score float64) string {
	page := "N/A"
	if chunk.Page > 0 {
		page = fmt.Sprintf("%d", chunk.Page)
	}
	return fmt.Sprintf("[Document: %s, Pagina: %s]\nRelevanță: %.2f%%\nConținut: %s",
		chunk.DocumentName, page, score*100, chunk.Content)
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLength {
		return content
	}
	return string(runes[:contentPreviewLength]) + "..."
}
