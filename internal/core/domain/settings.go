package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies the API family used to reach an embedding or LLM service.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or any API compatible with it.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic messages API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// LLMProvider names an answer-generation backend that can be requested per query.
type LLMProvider string

// Available LLM backends.
const (
	// LLMProviderMistral is a general-purpose chat model served by Ollama.
	LLMProviderMistral LLMProvider = "mistral"

	// LLMProviderGroq is a high-throughput cloud completion model behind
	// an OpenAI-compatible API.
	LLMProviderGroq LLMProvider = "groq"

	// LLMProviderAnthropic is a Claude model on the Anthropic API.
	LLMProviderAnthropic LLMProvider = "anthropic"
)

// IsValid returns true if the backend is recognised.
func (p LLMProvider) IsValid() bool {
	switch p {
	case LLMProviderMistral, LLMProviderGroq, LLMProviderAnthropic:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p LLMProvider) String() string {
	return string(p)
}

// DisplayName returns the capitalised backend name used in user-facing answers.
func (p LLMProvider) DisplayName() string {
	switch p {
	case LLMProviderMistral:
		return "Mistral"
	case LLMProviderGroq:
		return "Groq"
	case LLMProviderAnthropic:
		return "Anthropic"
	default:
		return unknownDescription
	}
}

// AllLLMProviders returns every backend in fallback preference order.
func AllLLMProviders() []LLMProvider {
	return []LLMProvider{LLMProviderMistral, LLMProviderGroq, LLMProviderAnthropic}
}

// ChunkingSettings controls how pages are split.
type ChunkingSettings struct {
	// Size is the target chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// RetrievalSettings controls the query path.
type RetrievalSettings struct {
	// TopK is the default number of chunks given to the LLM.
	TopK int

	// RerankTopK caps the number of chunks kept after reranking.
	RerankTopK int

	// UseReranking is the default for queries that do not say otherwise.
	UseReranking bool
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name. It also names the collection.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI-compatible providers).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RerankerSettings holds cross-encoder reranker configuration.
type RerankerSettings struct {
	// Enabled turns the reranker on.
	Enabled bool

	// Model is the reranker model name.
	Model string

	// BaseURL is the rerank service endpoint.
	BaseURL string
}

// IsConfigured returns true if a reranker endpoint is set up.
func (r RerankerSettings) IsConfigured() bool {
	return r.Enabled && r.BaseURL != ""
}

// LLMSettings holds the configuration of one answer backend.
type LLMSettings struct {
	// Provider is the API family used to reach the backend.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens bounds the reply length.
	MaxTokens int

	// TopP is the nucleus sampling parameter.
	TopP float64
}

// IsConfigured returns true if the backend can be created.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return l.Model != ""
}

// StorageSettings locates persisted state.
type StorageSettings struct {
	// DataDir holds the vector store database.
	DataDir string
}

// IngestionSettings controls the ingestion coordinator.
type IngestionSettings struct {
	// BatchSize is the number of points upserted per call.
	BatchSize int

	// WatchInterval is the period of full directory sweeps in watch mode.
	WatchInterval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	Reranker  RerankerSettings
	Ingestion IngestionSettings
	Storage   StorageSettings

	// LLMs holds the configuration of each known backend.
	LLMs map[LLMProvider]LLMSettings

	// DefaultProvider answers queries that name no backend, and is the
	// fallback for unavailable ones.
	DefaultProvider LLMProvider
}

// CollectionName returns the vector store collection for these settings.
func (s AppSettings) CollectionName() string {
	return CollectionName(s.Embedding.Model)
}

// DefaultAppSettings returns settings with sensible defaults.
// Cloud backends stay unconfigured until an API key is supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    512,
			Overlap: 50,
		},
		Retrieval: RetrievalSettings{
			TopK:         20,
			RerankTopK:   10,
			UseReranking: true,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "bge-m3",
			BaseURL:    "http://localhost:11434",
			Dimensions: 1024,
		},
		Reranker: RerankerSettings{
			Enabled: false,
			Model:   "BAAI/bge-reranker-base",
		},
		Ingestion: IngestionSettings{
			BatchSize:     32,
			WatchInterval: 5 * time.Minute,
		},
		LLMs: map[LLMProvider]LLMSettings{
			LLMProviderMistral: {
				Provider:    AIProviderOllama,
				Model:       "mistral:latest",
				BaseURL:     "http://localhost:11434",
				Temperature: 0.2,
				MaxTokens:   2000,
				TopP:        0.9,
			},
			LLMProviderGroq: {
				Provider:    AIProviderOpenAI,
				Model:       "llama-3.3-70b-versatile",
				BaseURL:     "https://api.groq.com/openai/v1",
				Temperature: 0.2,
				MaxTokens:   2000,
				TopP:        0.9,
			},
			LLMProviderAnthropic: {
				Provider:    AIProviderAnthropic,
				Model:       "claude-3-5-sonnet-latest",
				Temperature: 0.2,
				MaxTokens:   2000,
			},
		},
		DefaultProvider: LLMProviderMistral,
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"bge-m3":            1024,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
