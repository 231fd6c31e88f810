package driven

import "context"

// Reranker scores (query, passage) pairs with a cross-encoder.
// This is an optional service - when nil or unavailable, results keep
// their vector-search order and scores.
type Reranker interface {
	// Rerank returns one relevance score per passage, in passage order.
	// Higher is more relevant.
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)

	// ModelName returns the name of the reranker model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
