package driving

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// RetrievalService answers questions from indexed documents.
type RetrievalService interface {
	// Search retrieves relevant chunks, asks an LLM backend for an answer and
	// returns it with citations. It never returns an error: failures are
	// reported through RAGResponse.Success and RAGResponse.ErrorMessage.
	Search(ctx context.Context, query string, opts domain.SearchOptions) domain.RAGResponse
}
