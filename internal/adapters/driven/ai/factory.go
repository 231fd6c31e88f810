// Package ai provides factory functions that turn settings into driven adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/ragpipe/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragpipe/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragpipe/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/llm/breaker"
	ollamallm "github.com/custodia-labs/ragpipe/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragpipe/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/reranker/tei"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Options controls how Build creates adapters.
type Options struct {
	// InMemory selects the in-memory vector store instead of SQLite.
	InMemory bool

	// Breaker tunes the circuit breaker around each LLM backend.
	Breaker breaker.Config
}

// Services holds the driven adapters built from settings.
type Services struct {
	Embedding   driven.EmbeddingService
	Reranker    driven.Reranker // nil when no reranker is configured
	LLMs        map[domain.LLMProvider]driven.LLMService
	VectorStore driven.VectorStore
	Warnings    []string // Backends skipped because of bad configuration.
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.Reranker != nil {
		_ = s.Reranker.Close()
	}
	for _, llm := range s.LLMs {
		_ = llm.Close()
	}
	if s.VectorStore != nil {
		_ = s.VectorStore.Close()
	}
}

// Build creates every adapter described by settings. Misconfigured optional
// backends (reranker, LLMs) are skipped with a warning; a missing embedding
// service is an error because neither ingestion nor search can run without it.
func Build(settings domain.AppSettings, opts Options) (*Services, error) {
	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	svc := &Services{
		Embedding:   embedding,
		LLMs:        make(map[domain.LLMProvider]driven.LLMService),
		VectorStore: CreateVectorStore(settings, opts.InMemory),
	}

	reranker, err := CreateReranker(&settings.Reranker)
	if err != nil {
		svc.warn("reranker disabled: %v", err)
	}
	svc.Reranker = reranker

	for _, provider := range domain.AllLLMProviders() {
		cfg, ok := settings.LLMs[provider]
		if !ok || !cfg.IsConfigured() {
			logger.Debug("llm %s not configured", provider)
			continue
		}
		llm, err := CreateLLMService(provider, &cfg, opts.Breaker)
		if err != nil {
			svc.warn("llm %s disabled: %v", provider, err)
			continue
		}
		svc.LLMs[provider] = llm
	}

	return svc, nil
}

func (s *Services) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	s.Warnings = append(s.Warnings, msg)
}

// CreateEmbeddingService creates the embedding service for settings, throttled
// when a request rate is configured. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, errors.New("anthropic does not support embeddings, use ollama or openai")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: embeddingDimensions(settings),
		})
	case domain.AIProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: embeddingDimensions(settings),
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return ratelimit.Wrap(svc, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}), nil
}

// embeddingDimensions prefers the configured size, then the known size of the model.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// CreateReranker creates the cross-encoder client. Returns nil if the reranker is disabled.
func CreateReranker(settings *domain.RerankerSettings) (driven.Reranker, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	r, err := tei.New(tei.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateLLMService creates the backend for provider wrapped in a circuit breaker.
// Returns nil if the backend is not configured.
func CreateLLMService(provider domain.LLMProvider, settings *domain.LLMSettings, cfg breaker.Config) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return breaker.Wrap(string(provider), svc, cfg), nil
}

// CreateVectorStore returns the store for the configured collection.
// SQLite stores open lazily, so construction never fails.
func CreateVectorStore(settings domain.AppSettings, inMemory bool) driven.VectorStore {
	if inMemory {
		return memory.NewVectorStore(settings.CollectionName())
	}
	return sqlite.NewVectorStore(settings.Storage.DataDir, settings.CollectionName())
}

// ValidateEmbeddingConfig creates an embedding service from settings and pings it.
// Returns nil if the provider is not configured.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLMConfig creates the backend for provider and pings it.
// Returns nil if the backend is not configured.
func ValidateLLMConfig(ctx context.Context, provider domain.LLMProvider, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(provider, settings, breaker.Config{})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return nil
}
