// Package respond orchestrates the question-answering pipeline:
// tenant check, cache lookup, hybrid retrieval, context assembly,
// generation, and the best-effort cache write.
package respond

// Answer is the pipeline's result for one question.
type Answer struct {
	// Answer is the generated (or canned) response text, in Romanian.
	Answer string `json:"answer"`

	// Sources lists the chunks that backed the answer, best first.
	Sources []Source `json:"sources"`

	// Confidence is the mean fused relevance of the included chunks,
	// 0.0 for canned answers.
	Confidence float64 `json:"confidence"`

	// CacheType is "exact" or "similar" when served from cache,
	// empty for freshly generated answers.
	CacheType string `json:"cache_type,omitempty"`

	// Similarity is the cache-hit similarity, 1.0 for exact hits.
	Similarity float64 `json:"similarity,omitempty"`
}

// Source describes one chunk cited by an answer.
type Source struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	Page           int     `json:"page,omitempty"`
	ChunkIndex     int     `json:"chunk_index"`
	Similarity     float64 `json:"similarity"`
	ContentPreview string  `json:"content_preview"`
}

// Canned answers. The pipeline degrades to these instead of failing;
// only tenant rejections surface as errors.
const (
	// NoInformationAnswer is returned when retrieval finds nothing.
	NoInformationAnswer = "Îmi pare rău, dar nu am găsit informații relevante pentru întrebarea dumneavoastră în documentele disponibile. Vă rog să reformulați întrebarea sau să contactați direct primăria pentru informații suplimentare."

	// TechnicalErrorAnswer is returned when generation fails.
	TechnicalErrorAnswer = "A apărut o eroare la procesarea întrebării dumneavoastră. Vă rog să încercați din nou sau să contactați suportul tehnic."
)

// systemPromptTemplate frames the model as a Romanian fiscal-law
// assistant restricted to the supplied context. Formatted with the
// assembled context and the tenant name.
const systemPromptTemplate = `Ești un asistent AI expert în legislația fiscală românească.

INSTRUCȚIUNI IMPORTANTE:
1. Răspunde DOAR pe baza informațiilor din contextul furnizat
2. Dacă informația există în context, răspunde detaliat și precis
3. Citează întotdeauna sursa (document, pagină)
4. Dacă nu găsești informația exactă, spune clar că nu ai suficiente detalii
5. Răspunde în română, concis dar complet

Context legislativ disponibil:
%s

Client: %s
`

// contentPreviewLength caps per-source content previews.
const contentPreviewLength = 200
