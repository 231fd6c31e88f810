// Package breaker guards an LLM backend with a circuit breaker so that a
// failing provider is skipped quickly instead of timing out on every query.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default breaker settings.
const (
	DefaultMaxRequests  = 5
	DefaultInterval     = 10 * time.Second
	DefaultOpenTimeout  = 60 * time.Second
	DefaultMinRequests  = 3
	DefaultFailureRatio = 0.6
)

// Config tunes when the breaker opens and how long it stays open.
type Config struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the period after which failure counts reset while closed.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before a trial call.
	OpenTimeout time.Duration

	// MinRequests is the number of calls needed before the ratio is considered.
	MinRequests uint32

	// FailureRatio trips the breaker when reached.
	FailureRatio float64
}

func (c Config) withDefaults() Config {
	if c.MaxRequests == 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.MinRequests == 0 {
		c.MinRequests = DefaultMinRequests
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = DefaultFailureRatio
	}
	return c
}

// LLMService wraps another LLMService with a circuit breaker.
type LLMService struct {
	inner   driven.LLMService
	breaker *gobreaker.CircuitBreaker
}

// Wrap guards inner with a breaker named after the provider.
func Wrap(name string, inner driven.LLMService, cfg Config) *LLMService {
	cfg = cfg.withDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		// A caller giving up says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("llm %s: circuit breaker %s -> %s", name, from, to)
				return
			}
			logger.Info("llm %s: circuit breaker %s -> %s", name, from, to)
		},
	})
	return &LLMService{inner: inner, breaker: cb}
}

// Generate runs the inner Generate through the breaker.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return "", s.translate(err)
	}
	text, _ := result.(string)
	return text, nil
}

// ModelName returns the inner model name.
func (s *LLMService) ModelName() string {
	return s.inner.ModelName()
}

// Ping reports an open breaker as unavailable without contacting the backend.
func (s *LLMService) Ping(ctx context.Context) error {
	if s.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit breaker %s is open", domain.ErrLLMUnavailable, s.breaker.Name())
	}
	return s.inner.Ping(ctx)
}

// State returns the breaker state ("closed", "half-open" or "open").
func (s *LLMService) State() string {
	return s.breaker.State().String()
}

// Close closes the inner service.
func (s *LLMService) Close() error {
	return s.inner.Close()
}

func (s *LLMService) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", domain.ErrLLMUnavailable, s.breaker.Name(), err)
	}
	return err
}
