package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

const validReply = `{"answer": "La réponse.", "citations": [{"doc_id": "guide", "page": 2}], "claims": []}`

func TestLLMRegistry_GenerateWithRequestedProvider(t *testing.T) {
	mistral := &fakeLLM{reply: "ignored"}
	groq := &fakeLLM{reply: validReply}
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})
	r.Register(domain.LLMProviderGroq, groq, driven.GenerateOptions{MaxTokens: 100, Temperature: 0.3})

	answer, used, err := r.Generate(context.Background(), domain.LLMProviderGroq, "question")

	require.NoError(t, err)
	assert.Equal(t, domain.LLMProviderGroq, used)
	assert.Equal(t, "La réponse.", answer.Answer)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, domain.Citation{DocID: "guide", Page: 2}, answer.Citations[0])
	assert.Equal(t, 100, groq.lastOpts.MaxTokens)
	assert.Equal(t, 0, mistral.calls())
}

func TestLLMRegistry_EmptyProviderUsesDefault(t *testing.T) {
	mistral := &fakeLLM{reply: validReply}
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})

	_, used, err := r.Generate(context.Background(), "", "question")

	require.NoError(t, err)
	assert.Equal(t, domain.LLMProviderMistral, used)
	assert.Equal(t, "question", mistral.lastPrompt())
}

func TestLLMRegistry_FallsBackToDefault(t *testing.T) {
	mistral := &fakeLLM{reply: validReply}
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})
	r.Register(domain.LLMProviderGroq, &fakeLLM{pingErr: errors.New("no key")}, driven.GenerateOptions{})

	tests := []struct {
		name      string
		requested domain.LLMProvider
	}{
		{"unreachable backend", domain.LLMProviderGroq},
		{"unregistered backend", domain.LLMProviderAnthropic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, used, err := r.Generate(context.Background(), tt.requested, "question")
			require.NoError(t, err)
			assert.Equal(t, domain.LLMProviderMistral, used)
			assert.Equal(t, "La réponse.", answer.Answer)
		})
	}
}

func TestLLMRegistry_ExplicitFallbackChain(t *testing.T) {
	anthropic := &fakeLLM{reply: validReply}
	r := NewLLMRegistry(domain.LLMProviderMistral, domain.LLMProviderAnthropic)
	r.Register(domain.LLMProviderMistral, &fakeLLM{pingErr: errors.New("down")}, driven.GenerateOptions{})
	r.Register(domain.LLMProviderAnthropic, anthropic, driven.GenerateOptions{})

	_, used, err := r.Generate(context.Background(), domain.LLMProviderGroq, "question")

	require.NoError(t, err)
	assert.Equal(t, domain.LLMProviderAnthropic, used)
	assert.Equal(t, 1, anthropic.calls())
}

func TestLLMRegistry_NothingAvailable(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, &fakeLLM{pingErr: errors.New("down")}, driven.GenerateOptions{})

	answer, used, err := r.Generate(context.Background(), domain.LLMProviderGroq, "question")

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, domain.LLMProviderGroq, used)
	assert.Equal(t, "Groq non disponible", answer.Answer)
	assert.Empty(t, answer.Citations)
	assert.NotNil(t, answer.Claims)
}

func TestLLMRegistry_GenerationError(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, &fakeLLM{err: errors.New("context window exceeded")}, driven.GenerateOptions{})

	answer, used, err := r.Generate(context.Background(), "", "question")

	require.Error(t, err)
	assert.Equal(t, domain.LLMProviderMistral, used)
	assert.Equal(t, "Erreur lors de la génération avec Mistral: context window exceeded", answer.Answer)
	assert.Empty(t, answer.Citations)
}

func TestLLMRegistry_UnknownProvider(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, &fakeLLM{reply: validReply}, driven.GenerateOptions{})

	_, _, err := r.Generate(context.Background(), "gpt-9", "question")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLLMRegistry_UnstructuredReplyFallsBack(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.Register(domain.LLMProviderMistral, &fakeLLM{reply: "Une réponse libre."}, driven.GenerateOptions{})

	answer, _, err := r.Generate(context.Background(), "", "question")

	require.NoError(t, err)
	assert.Equal(t, "Une réponse libre.", answer.Answer)
	assert.Empty(t, answer.Citations)
}

func TestLLMRegistry_ProvidersAndHealth(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	anthropic := &fakeLLM{}
	r.Register(domain.LLMProviderAnthropic, anthropic, driven.GenerateOptions{})
	r.Register(domain.LLMProviderMistral, &fakeLLM{pingErr: errors.New("down")}, driven.GenerateOptions{})

	assert.Equal(t, []domain.LLMProvider{domain.LLMProviderMistral, domain.LLMProviderAnthropic}, r.Providers())
	assert.Equal(t, map[domain.LLMProvider]bool{
		domain.LLMProviderMistral:   false,
		domain.LLMProviderAnthropic: true,
	}, r.Health(context.Background()))

	require.NoError(t, r.Close())
	assert.True(t, anthropic.closed)
}

func TestLLMRegistry_ReusesPingResultsWithinTTL(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral, domain.LLMProviderAnthropic)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	mistral := &fakeLLM{pingErr: errors.New("connection refused")}
	anthropic := &fakeLLM{reply: validReply}
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})
	r.Register(domain.LLMProviderAnthropic, anthropic, driven.GenerateOptions{})

	for range 3 {
		_, used, err := r.Generate(context.Background(), "", "q")
		require.NoError(t, err)
		assert.Equal(t, domain.LLMProviderAnthropic, used)
	}
	assert.Equal(t, 1, mistral.pingCalls(), "dead backend pinged once per TTL")
	assert.Equal(t, 1, anthropic.pingCalls())

	mistral.setPingErr(nil)
	now = now.Add(DefaultAvailabilityTTL)

	_, used, err := r.Generate(context.Background(), "", "q")
	require.NoError(t, err)
	assert.Equal(t, domain.LLMProviderMistral, used)
	assert.Equal(t, 2, mistral.pingCalls())
}

func TestLLMRegistry_UnavailableGenerationInvalidatesCache(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral, domain.LLMProviderAnthropic)
	mistral := &fakeLLM{err: fmt.Errorf("%w: connection reset", domain.ErrLLMUnavailable)}
	anthropic := &fakeLLM{reply: validReply}
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})
	r.Register(domain.LLMProviderAnthropic, anthropic, driven.GenerateOptions{})

	_, used, err := r.Generate(context.Background(), "", "q")
	require.Error(t, err)
	assert.Equal(t, domain.LLMProviderMistral, used)

	_, used, err = r.Generate(context.Background(), "", "q")
	require.NoError(t, err)
	assert.Equal(t, domain.LLMProviderAnthropic, used)
}

func TestLLMRegistry_HealthBypassesCache(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	mistral := &fakeLLM{}
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})

	assert.True(t, r.Available(context.Background(), domain.LLMProviderMistral))
	mistral.setPingErr(errors.New("down"))

	assert.True(t, r.Available(context.Background(), domain.LLMProviderMistral))
	assert.Equal(t, map[domain.LLMProvider]bool{domain.LLMProviderMistral: false}, r.Health(context.Background()))
	assert.False(t, r.Available(context.Background(), domain.LLMProviderMistral))
}

func TestLLMRegistry_ZeroTTLPingsEveryTime(t *testing.T) {
	r := NewLLMRegistry(domain.LLMProviderMistral)
	r.SetAvailabilityTTL(0)
	mistral := &fakeLLM{}
	r.Register(domain.LLMProviderMistral, mistral, driven.GenerateOptions{})

	r.Available(context.Background(), domain.LLMProviderMistral)
	r.Available(context.Background(), domain.LLMProviderMistral)

	assert.Equal(t, 2, mistral.pingCalls())
}
