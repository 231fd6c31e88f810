// Package tei provides a cross-encoder reranker client for servers that
// expose a text-embeddings-inference style /rerank endpoint.
package tei

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragpipe/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Default configuration values.
const (
	DefaultModel   = "BAAI/bge-reranker-base"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the reranker client.
type Config struct {
	// BaseURL is the reranker server URL (required).
	BaseURL string

	// Model is reported by ModelName; the server decides what it runs.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Reranker scores (query, passage) pairs with a remote cross-encoder.
type Reranker struct {
	api   *httpapi.Client
	model string
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates a reranker client.
func New(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: reranker base URL is required", domain.ErrRerankerUnavailable)
	}
	return &Reranker{
		api: httpapi.New("reranker", cfg.BaseURL, cmp.Or(cfg.Timeout, DefaultTimeout),
			httpapi.WithUnavailable(domain.ErrRerankerUnavailable)),
		model: cmp.Or(cfg.Model, DefaultModel),
	}, nil
}

// Rerank returns one raw score per passage, in passage order. Higher is more
// relevant. Any failure, including an error status, marks the reranker
// unavailable so retrieval falls back to vector order.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	var results []rerankResult
	err := r.api.Post(ctx, "/rerank", rerankRequest{Query: query, Texts: passages, RawScores: true, Truncate: true}, &results)
	if err != nil {
		return nil, unavailable(err)
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(passages) {
			return nil, fmt.Errorf("reranker: index %d out of range", res.Index)
		}
		scores[res.Index] = res.Score
		seen[res.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("reranker: no score for passage %d", i)
		}
	}
	return scores, nil
}

// ModelName returns the configured model name.
func (r *Reranker) ModelName() string {
	return r.model
}

// Ping checks the /health endpoint.
func (r *Reranker) Ping(ctx context.Context) error {
	return unavailable(r.api.Get(ctx, "/health", nil))
}

// Close releases idle connections.
func (r *Reranker) Close() error {
	r.api.Close()
	return nil
}

// unavailable marks error statuses as ErrRerankerUnavailable. Transport
// failures already carry it.
func unavailable(err error) error {
	var status *httpapi.StatusError
	if errors.As(err, &status) {
		return fmt.Errorf("%w: %w", domain.ErrRerankerUnavailable, err)
	}
	return err
}
