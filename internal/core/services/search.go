package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
	"github.com/custodia-labs/ragpipe/internal/logger"
	"github.com/custodia-labs/ragpipe/internal/structured"
)

// Ensure Pipeline implements the interface.
var _ driving.RetrievalService = (*Pipeline)(nil)

const (
	// answerConfidence is reported on every successful answer.
	answerConfidence = 0.8

	// previewLength is the number of runes kept in a source preview.
	previewLength = 200

	defaultTopK       = 20
	defaultRerankTopK = 10

	noContext         = "Aucun document pertinent trouvé."
	searchErrorPrefix = "Erreur lors de la recherche: "
)

// Pipeline answers questions from the indexed documents:
// embed, vector search, optional rerank, prompt, generate, parse.
type Pipeline struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	reranker driven.Reranker
	llms     *LLMRegistry
	prompts  driven.PromptStore
	settings domain.RetrievalSettings
}

// NewPipeline creates a retrieval pipeline. The reranker is optional (can be nil).
func NewPipeline(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	reranker driven.Reranker,
	llms *LLMRegistry,
	prompts driven.PromptStore,
	settings domain.RetrievalSettings,
) *Pipeline {
	if settings.TopK <= 0 {
		settings.TopK = defaultTopK
	}
	if settings.RerankTopK <= 0 {
		settings.RerankTopK = defaultRerankTopK
	}
	return &Pipeline{
		embedder: embedder,
		store:    store,
		reranker: reranker,
		llms:     llms,
		prompts:  prompts,
		settings: settings,
	}
}

// Search answers query. It never returns an error: failures are reported
// through Success and ErrorMessage, with Citations and Sources empty.
func (p *Pipeline) Search(ctx context.Context, query string, opts domain.SearchOptions) (resp domain.RAGResponse) {
	start := time.Now()
	requestID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("search %s: panic: %v", requestID, r)
			resp = searchFailure(fmt.Errorf("panic: %v", r))
		}
		resp.RequestID = requestID
		resp.ProcessingTime = time.Since(start).Seconds()
		logger.Debug("search %s done in %.2fs (success=%t)", requestID, resp.ProcessingTime, resp.Success)
	}()

	logger.Section("Search Execution")
	logger.Debug("Request %s, query: %q", requestID, query)

	query = strings.TrimSpace(query)
	if query == "" {
		return searchFailure(domain.ErrEmptyQuery)
	}
	if opts.Provider != "" && !opts.Provider.IsValid() {
		return searchFailure(fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidInput, opts.Provider))
	}

	k := opts.Limit
	if k <= 0 {
		k = p.settings.TopK
	}

	hits, reranked, err := p.retrieve(ctx, query, k, opts)
	if err != nil {
		logger.Warn("search %s: %v", requestID, err)
		return searchFailure(err)
	}
	logger.Info("Retrieved %d chunks (reranked=%t)", len(hits), reranked)

	prompt, err := p.buildPrompt(query, hits)
	if err != nil {
		logger.Warn("search %s: %v", requestID, err)
		return searchFailure(err)
	}

	answer, provider, err := p.llms.Generate(ctx, opts.Provider, prompt)
	if err != nil {
		logger.Warn("search %s: %v", requestID, err)
		return domain.RAGResponse{
			Answer:       answer.Answer,
			Citations:    []domain.Citation{},
			Claims:       []domain.Claim{},
			Sources:      []domain.Source{},
			Success:      false,
			ErrorMessage: err.Error(),
			Reranked:     reranked,
			Provider:     provider,
		}
	}

	// Sources are only shown when the answer cites something.
	sources := []domain.Source{}
	if len(answer.Citations) > 0 {
		sources = make([]domain.Source, len(hits))
		for i, h := range hits {
			sources[i] = domain.Source{
				DocID:          h.DocID,
				Page:           h.Page,
				ContentPreview: preview(h.Content),
				Score:          h.Score,
			}
		}
	}
	logger.Info("Answer from %s: %d citations, %d sources", provider, len(answer.Citations), len(sources))

	return domain.RAGResponse{
		Answer:     answer.Answer,
		Citations:  answer.Citations,
		Claims:     answer.Claims,
		Sources:    sources,
		Confidence: answerConfidence,
		Success:    true,
		Reranked:   reranked,
		Provider:   provider,
	}
}

// retrieve embeds the query, searches the store and reranks when asked.
func (p *Pipeline) retrieve(
	ctx context.Context, query string, k int, opts domain.SearchOptions,
) ([]domain.SearchHit, bool, error) {
	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("embed query: %w", err)
	}

	limit := k
	if opts.UseReranking {
		limit = 2 * k
	}
	logger.Debug("Vector search: limit=%d, docs=%v", limit, opts.DocIDs)

	hits, err := p.store.Search(ctx, vector, limit, opts.Filter())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Collection not created yet")
			return []domain.SearchHit{}, false, nil
		}
		return nil, false, fmt.Errorf("vector search: %w", err)
	}

	if !opts.UseReranking {
		return truncate(hits, k), false, nil
	}
	return p.rerank(ctx, query, hits, k)
}

// rerank rescores hits with the cross-encoder and keeps the best
// min(k, RerankTopK). Without a working reranker the vector order is kept.
func (p *Pipeline) rerank(
	ctx context.Context, query string, hits []domain.SearchHit, k int,
) ([]domain.SearchHit, bool, error) {
	if len(hits) == 0 {
		return hits, false, nil
	}
	if p.reranker == nil {
		logger.Debug("Reranking requested but no reranker configured")
		return truncate(hits, k), false, nil
	}

	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Content
	}
	scores, err := p.reranker.Rerank(ctx, query, passages)
	if err == nil && len(scores) != len(hits) {
		err = fmt.Errorf("%w: got %d scores for %d passages", domain.ErrRerankerUnavailable, len(scores), len(hits))
	}
	if err != nil {
		logger.Warn("Reranking skipped: %v", err)
		return truncate(hits, k), false, nil
	}

	rescored := make([]domain.SearchHit, len(hits))
	copy(rescored, hits)
	for i := range rescored {
		rescored[i].Score = scores[i]
	}
	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].Score > rescored[j].Score
	})
	return truncate(rescored, min(k, p.settings.RerankTopK)), true, nil
}

// buildPrompt fills the answer template and appends the JSON instructions.
func (p *Pipeline) buildPrompt(query string, hits []domain.SearchHit) (string, error) {
	template, err := p.prompts.Load(driven.PromptRAGAnswer)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", driven.PromptRAGAnswer, err)
	}
	suffix, err := p.prompts.Load(driven.PromptStructuredOutput)
	if err != nil {
		logger.Debug("Prompt %s unavailable, using built-in: %v", driven.PromptStructuredOutput, err)
		suffix = ""
	}
	return structured.WithSuffix(fmt.Sprintf(template, buildContext(hits), query), suffix), nil
}

// buildContext renders the retrieved chunks for the prompt.
func buildContext(hits []domain.SearchHit) string {
	if len(hits) == 0 {
		return noContext
	}
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("\nDocument: %s\nPage: %d\nContenu: %s\n---", h.DocID, h.Page, h.Content)
	}
	return strings.Join(blocks, "\n")
}

// preview truncates content to previewLength runes.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}

func truncate(hits []domain.SearchHit, n int) []domain.SearchHit {
	if n >= 0 && len(hits) > n {
		return hits[:n]
	}
	return hits
}

func searchFailure(err error) domain.RAGResponse {
	return domain.RAGResponse{
		Answer:       searchErrorPrefix + err.Error(),
		Citations:    []domain.Citation{},
		Claims:       []domain.Claim{},
		Sources:      []domain.Source{},
		Success:      false,
		ErrorMessage: err.Error(),
	}
}
