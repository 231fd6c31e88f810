// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService is a black-box text completion backend: prompt in, text out.
// Structured answers are obtained by parsing the returned text.
//
// Implementations include:
//   - Ollama (mistral and other local models)
//   - OpenAI-compatible APIs (Groq, OpenAI)
//   - Anthropic (Claude)
type LLMService interface {
	// Generate produces a text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// A backend that fails Ping is treated as unavailable and skipped in favour
	// of the fallback backend.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// TopP is the nucleus sampling cut-off. Zero leaves the backend default.
	TopP float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
