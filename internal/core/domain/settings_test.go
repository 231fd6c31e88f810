package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 512, s.Chunking.Size)
	assert.Equal(t, 50, s.Chunking.Overlap)
	assert.Equal(t, 20, s.Retrieval.TopK)
	assert.Equal(t, 10, s.Retrieval.RerankTopK)
	assert.Equal(t, 1024, s.Embedding.Dimensions)
	assert.Equal(t, LLMProviderMistral, s.DefaultProvider)
	assert.Equal(t, "documents_bge_m3", s.CollectionName())

	mistral := s.LLMs[LLMProviderMistral]
	assert.True(t, mistral.IsConfigured())
	assert.Equal(t, 2000, mistral.MaxTokens)
	assert.InDelta(t, 0.2, mistral.Temperature, 1e-9)

	// Cloud backends need a key.
	assert.False(t, s.LLMs[LLMProviderGroq].IsConfigured())
	assert.False(t, s.LLMs[LLMProviderAnthropic].IsConfigured())
}

func TestLLMProvider(t *testing.T) {
	for _, p := range AllLLMProviders() {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.DisplayName())
	}
	assert.False(t, LLMProvider("gpt").IsValid())
	assert.Equal(t, unknownDescription, LLMProvider("gpt").DisplayName())
	assert.Equal(t, "Mistral", LLMProviderMistral.DisplayName())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		want     bool
	}{
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"unknown", EmbeddingSettings{Provider: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.IsConfigured())
		})
	}
}

func TestRerankerSettings_IsConfigured(t *testing.T) {
	assert.False(t, RerankerSettings{}.IsConfigured())
	assert.False(t, RerankerSettings{Enabled: true}.IsConfigured())
	assert.True(t, RerankerSettings{Enabled: true, BaseURL: "http://localhost:8080"}.IsConfigured())
}

func TestHealthReport(t *testing.T) {
	h := HealthReport{
		ComponentVectorStore:            true,
		ComponentEmbedding:              true,
		LLMComponent(LLMProviderMistral): true,
	}
	assert.True(t, h.Healthy())
	assert.Equal(t, []string{"embedding", "llm_mistral", "vector_store"}, h.Components())

	h[ComponentReranker] = false
	assert.False(t, h.Healthy())
}

func TestResponses(t *testing.T) {
	failed := ErrorResponse("disque plein")
	assert.False(t, failed.Success)
	assert.Equal(t, "Erreur système: disque plein", failed.Answer)
	assert.Equal(t, "disque plein", failed.ErrorMessage)
	assert.Empty(t, failed.Citations)
	assert.Empty(t, failed.Sources)

	empty := EmptyResponse()
	assert.True(t, empty.Success)
	assert.Equal(t, AnswerNoInformation, empty.Answer)
	assert.Empty(t, empty.Sources)
}

func TestSearchOptions_Filter(t *testing.T) {
	opts := SearchOptions{DocIDs: []string{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, opts.Filter().DocIDs)
	assert.True(t, SearchOptions{}.Filter().IsEmpty())
}
