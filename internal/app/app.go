// Package app wires settings, driven adapters and core services into the
// services the command line runs on.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/ragpipe/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragpipe/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/core/services"
	"github.com/custodia-labs/ragpipe/internal/extractors"
	"github.com/custodia-labs/ragpipe/internal/extractors/docx"
	"github.com/custodia-labs/ragpipe/internal/extractors/html"
	"github.com/custodia-labs/ragpipe/internal/extractors/markdown"
	"github.com/custodia-labs/ragpipe/internal/extractors/pdf"
	"github.com/custodia-labs/ragpipe/internal/extractors/plaintext"
	"github.com/custodia-labs/ragpipe/internal/extractors/xlsx"
	"github.com/custodia-labs/ragpipe/internal/logger"
	"github.com/custodia-labs/ragpipe/internal/postprocessors/chunker"
)

const (
	promptsDir = "prompts"
	dataDir    = "data"
	dotEnv     = ".env"
)

// errNotConfigured marks a component with no usable configuration.
var errNotConfigured = errors.New("not configured")

// Bootstrap builds every service from the configuration directory.
//
// When the AI adapters cannot be built, the returned services carry only
// Settings and CheckConfig, with Err explaining why, so the configuration
// can still be inspected and fixed.
func Bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open configuration: %w", err)
	}
	dir := filepath.Dir(configStore.Path())

	if err := services.LoadDotEnv(dotEnv, filepath.Join(dir, dotEnv)); err != nil {
		logger.Warn("%v", err)
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings.Storage.DataDir == "" {
		settings.Storage.DataDir = filepath.Join(dir, dataDir)
	}

	out := &cli.Services{
		Settings:    settingsService,
		CheckConfig: configChecker(*settings),
		Close:       func() error { return nil },
	}

	built, err := ai.Build(*settings, ai.Options{InMemory: opts.InMemory})
	if err != nil {
		out.Err = err
		return out, nil
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, promptsDir))
	if err != nil {
		built.Close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	registry := extractors.NewRegistry(plaintext.New(), markdown.New(), pdf.New(), docx.New(), html.New(), xlsx.New())
	splitter := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	coordinator := services.NewIngestionCoordinator(
		registry, splitter, built.Embedding, built.VectorStore, settings.Ingestion.BatchSize,
	)

	llms := newLLMRegistry(*settings, built.LLMs)
	if len(llms.Providers()) == 0 {
		logger.Warn("no LLM backend configured: searches will fail until one is set up")
	}

	out.Ingestion = coordinator
	out.Retrieval = services.NewPipeline(
		built.Embedding, built.VectorStore, built.Reranker, llms, prompts, settings.Retrieval,
	)
	out.Collection = services.NewCollectionService(
		settings.CollectionName(), built.VectorStore, coordinator, built.Embedding, built.Reranker, llms,
	)
	out.Close = func() error {
		built.Close()
		return nil
	}

	logger.Debug("collection %s in %s", settings.CollectionName(), settings.Storage.DataDir)
	return out, nil
}

// newLLMRegistry registers every built backend with its generation options.
// The default provider is tried first, then the others in preference order.
func newLLMRegistry(settings domain.AppSettings, backends map[domain.LLMProvider]driven.LLMService) *services.LLMRegistry {
	registry := services.NewLLMRegistry(settings.DefaultProvider, domain.AllLLMProviders()...)
	for provider, svc := range backends {
		cfg := settings.LLMs[provider]
		registry.Register(provider, svc, driven.GenerateOptions{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		})
	}
	return registry
}

// configChecker pings each configured component with a fresh client.
func configChecker(settings domain.AppSettings) func(ctx context.Context) []cli.ConfigCheck {
	return func(ctx context.Context) []cli.ConfigCheck {
		var checks []cli.ConfigCheck

		embeddingErr := errNotConfigured
		if settings.Embedding.IsConfigured() || settings.Embedding.Provider == domain.AIProviderAnthropic {
			embeddingErr = ai.ValidateEmbeddingConfig(ctx, &settings.Embedding)
		}
		checks = append(checks, cli.ConfigCheck{Component: domain.ComponentEmbedding, Err: embeddingErr})

		if settings.Reranker.IsConfigured() {
			checks = append(checks, cli.ConfigCheck{
				Component: domain.ComponentReranker,
				Err:       validateReranker(ctx, &settings.Reranker),
			})
		}

		for _, provider := range domain.AllLLMProviders() {
			cfg, ok := settings.LLMs[provider]
			if !ok || !cfg.IsConfigured() {
				continue
			}
			checks = append(checks, cli.ConfigCheck{
				Component: domain.LLMComponent(provider),
				Err:       ai.ValidateLLMConfig(ctx, provider, &cfg),
			})
		}
		return checks
	}
}

func validateReranker(ctx context.Context, settings *domain.RerankerSettings) error {
	r, err := ai.CreateReranker(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRerankerUnavailable, err)
	}
	if r == nil {
		return errNotConfigured
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(ctx, services.DefaultPingTimeout)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrRerankerUnavailable, err)
	}
	return nil
}
