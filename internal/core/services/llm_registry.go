package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
	"github.com/custodia-labs/ragpipe/internal/structured"
)

const (
	// DefaultPingTimeout bounds each backend availability check.
	DefaultPingTimeout = 5 * time.Second

	// DefaultAvailabilityTTL is how long a ping result is reused by Resolve.
	DefaultAvailabilityTTL = 30 * time.Second
)

type registeredLLM struct {
	service driven.LLMService
	opts    driven.GenerateOptions
}

type availability struct {
	ok        bool
	checkedAt time.Time
}

// LLMRegistry holds the configured answer backends. A request for an
// unavailable backend falls through the chain: the requested provider, then
// each fallback in order. The default provider is always the first fallback.
type LLMRegistry struct {
	backends        map[domain.LLMProvider]registeredLLM
	defaultProvider domain.LLMProvider
	fallbacks       []domain.LLMProvider
	pingTimeout     time.Duration
	ttl             time.Duration
	now             func() time.Time

	mu      sync.Mutex
	checked map[domain.LLMProvider]availability
}

// NewLLMRegistry creates an empty registry.
func NewLLMRegistry(defaultProvider domain.LLMProvider, fallbacks ...domain.LLMProvider) *LLMRegistry {
	chain := []domain.LLMProvider{defaultProvider}
	for _, p := range fallbacks {
		if p != defaultProvider {
			chain = append(chain, p)
		}
	}
	return &LLMRegistry{
		backends:        make(map[domain.LLMProvider]registeredLLM),
		defaultProvider: defaultProvider,
		fallbacks:       chain,
		pingTimeout:     DefaultPingTimeout,
		ttl:             DefaultAvailabilityTTL,
		now:             time.Now,
		checked:         make(map[domain.LLMProvider]availability),
	}
}

// SetAvailabilityTTL changes how long ping results are reused. Zero pings
// on every request.
func (r *LLMRegistry) SetAvailabilityTTL(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttl = max(d, 0)
}

// Register adds or replaces a backend.
func (r *LLMRegistry) Register(provider domain.LLMProvider, service driven.LLMService, opts driven.GenerateOptions) {
	r.backends[provider] = registeredLLM{service: service, opts: opts}
}

// DefaultProvider returns the provider used when a query names none.
func (r *LLMRegistry) DefaultProvider() domain.LLMProvider {
	return r.defaultProvider
}

// Providers returns the registered providers in preference order.
func (r *LLMRegistry) Providers() []domain.LLMProvider {
	var out []domain.LLMProvider
	for _, p := range domain.AllLLMProviders() {
		if _, ok := r.backends[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Available reports whether a backend is registered and answers a ping.
// A ping result younger than the availability TTL is reused, so a dead
// backend costs one ping timeout per TTL rather than one per request.
func (r *LLMRegistry) Available(ctx context.Context, provider domain.LLMProvider) bool {
	if _, ok := r.backends[provider]; !ok {
		return false
	}
	r.mu.Lock()
	cached, ok := r.checked[provider]
	fresh := ok && r.now().Sub(cached.checkedAt) < r.ttl
	r.mu.Unlock()
	if fresh {
		return cached.ok
	}
	return r.ping(ctx, provider)
}

// ping checks a registered backend and records the result.
func (r *LLMRegistry) ping(ctx context.Context, provider domain.LLMProvider) bool {
	ctx, cancel := context.WithTimeout(ctx, r.pingTimeout)
	defer cancel()
	err := r.backends[provider].service.Ping(ctx)
	if err != nil {
		logger.Debug("llm %s unavailable: %v", provider, err)
	}
	r.record(provider, err == nil)
	return err == nil
}

func (r *LLMRegistry) record(provider domain.LLMProvider, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checked[provider] = availability{ok: ok, checkedAt: r.now()}
}

// Resolve picks the first available provider of the chain starting at requested.
// An empty request means the default provider.
func (r *LLMRegistry) Resolve(ctx context.Context, requested domain.LLMProvider) (domain.LLMProvider, error) {
	if requested == "" {
		requested = r.defaultProvider
	}
	if !requested.IsValid() {
		return requested, fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidInput, requested)
	}

	seen := make(map[domain.LLMProvider]bool, len(r.fallbacks)+1)
	for _, p := range append([]domain.LLMProvider{requested}, r.fallbacks...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		if r.Available(ctx, p) {
			if p != requested {
				logger.Warn("llm %s unavailable, falling back to %s", requested, p)
			}
			return p, nil
		}
	}
	return requested, fmt.Errorf("%w: %s", domain.ErrLLMUnavailable, unavailableAnswer(requested))
}

// Generate answers prompt with the first available backend and parses the
// reply. The returned answer is never empty: on failure it carries the
// French user-facing message and the error says why.
func (r *LLMRegistry) Generate(
	ctx context.Context, requested domain.LLMProvider, prompt string,
) (domain.StructuredAnswer, domain.LLMProvider, error) {
	provider, err := r.Resolve(ctx, requested)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return failedAnswer(err.Error()), provider, err
		}
		return failedAnswer(unavailableAnswer(provider)), provider, err
	}

	backend := r.backends[provider]
	logger.Debug("generating with %s (%s)", provider, backend.service.ModelName())
	raw, err := backend.service.Generate(ctx, prompt, backend.opts)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			r.record(provider, false)
		}
		msg := fmt.Sprintf("Erreur lors de la génération avec %s: %v", provider.DisplayName(), err)
		return failedAnswer(msg), provider, fmt.Errorf("generate with %s: %w", provider, err)
	}
	return structured.Parse(raw), provider, nil
}

// Health pings every registered backend, ignoring cached results.
func (r *LLMRegistry) Health(ctx context.Context) map[domain.LLMProvider]bool {
	out := make(map[domain.LLMProvider]bool, len(r.backends))
	for p := range r.backends {
		out[p] = r.ping(ctx, p)
	}
	return out
}

// Close closes every backend.
func (r *LLMRegistry) Close() error {
	var errs []error
	for p, b := range r.backends {
		if err := b.service.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func unavailableAnswer(p domain.LLMProvider) string {
	return p.DisplayName() + " non disponible"
}

func failedAnswer(msg string) domain.StructuredAnswer {
	return domain.StructuredAnswer{
		Answer:    msg,
		Citations: []domain.Citation{},
		Claims:    []domain.Claim{},
	}
}
