package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// isolateEnv clears variables that would override the test configuration.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OLLAMA_HOST", "OPENAI_API_KEY", "GROQ_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
	}
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
}

func TestBootstrap_BuildsServices(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	svc, err := Bootstrap(cli.Options{ConfigDir: dir, InMemory: true})
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Err)
	assert.NotNil(t, svc.Ingestion)
	assert.NotNil(t, svc.Retrieval)
	assert.NotNil(t, svc.Collection)
	assert.NotNil(t, svc.Settings)
	assert.NotNil(t, svc.CheckConfig)
	assert.Equal(t, filepath.Join(dir, "config.toml"), svc.Settings.Path())

	assert.True(t, svc.Ingestion.Supports("rapport.pdf"))
	assert.True(t, svc.Ingestion.Supports("notes.md"))
	assert.True(t, svc.Ingestion.Supports("contrat.docx"))
	assert.True(t, svc.Ingestion.Supports("faq.html"))
	assert.True(t, svc.Ingestion.Supports("tarifs.xlsx"))
	assert.False(t, svc.Ingestion.Supports("photo.png"))
}

func TestBootstrap_EmptyCollection(t *testing.T) {
	isolateEnv(t)

	svc, err := Bootstrap(cli.Options{ConfigDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	defer svc.Close()

	docs, err := svc.Collection.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	info, err := svc.Collection.GetCollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionName("bge-m3"), info.Name)
}

func TestBootstrap_InvalidEmbeddingKeepsSettings(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "[embedding]\nprovider = \"anthropic\"\n")

	svc, err := Bootstrap(cli.Options{ConfigDir: dir, InMemory: true})
	require.NoError(t, err)
	defer svc.Close()

	require.Error(t, svc.Err)
	assert.Nil(t, svc.Ingestion)
	assert.Nil(t, svc.Retrieval)
	assert.Nil(t, svc.Collection)
	require.NotNil(t, svc.Settings)

	require.NoError(t, svc.Settings.Set("embedding.provider", "ollama"))
	settings, err := svc.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
}

func TestBootstrap_LoadsDotEnv(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("RAGPIPE_RETRIEVAL_TOP_K", "")
	os.Unsetenv("RAGPIPE_RETRIEVAL_TOP_K")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RAGPIPE_RETRIEVAL_TOP_K=7\n"), 0o600))

	svc, err := Bootstrap(cli.Options{ConfigDir: dir, InMemory: true})
	require.NoError(t, err)
	defer svc.Close()

	settings, err := svc.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.Retrieval.TopK)
}

func TestConfigChecker(t *testing.T) {
	isolateEnv(t)

	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachableURL := unreachable.URL
	unreachable.Close()

	settings := domain.DefaultAppSettings()
	settings.Embedding.BaseURL = unreachableURL
	settings.LLMs = map[domain.LLMProvider]domain.LLMSettings{}

	checks := configChecker(settings)(context.Background())

	require.Len(t, checks, 1)
	assert.Equal(t, domain.ComponentEmbedding, checks[0].Component)
	assert.ErrorIs(t, checks[0].Err, domain.ErrEmbeddingUnavailable)
}

func TestConfigChecker_NotConfigured(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.APIKey = ""
	settings.LLMs = map[domain.LLMProvider]domain.LLMSettings{}

	checks := configChecker(settings)(context.Background())

	require.Len(t, checks, 1)
	assert.ErrorIs(t, checks[0].Err, errNotConfigured)
}

func TestConfigChecker_ListsConfiguredComponents(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding.BaseURL = "http://127.0.0.1:1"
	settings.Reranker = domain.RerankerSettings{Enabled: true, BaseURL: "http://127.0.0.1:1", Model: "BAAI/bge-reranker-base"}
	settings.LLMs = map[domain.LLMProvider]domain.LLMSettings{
		domain.LLMProviderMistral: {Provider: domain.AIProviderOllama, Model: "mistral", BaseURL: "http://127.0.0.1:1"},
		domain.LLMProviderGroq:    {Provider: domain.AIProviderOpenAI, Model: "llama"},
	}

	checks := configChecker(settings)(context.Background())

	components := make([]string, len(checks))
	for i, c := range checks {
		components[i] = c.Component
		assert.Error(t, c.Err, c.Component)
	}
	assert.Equal(t, []string{"embedding", "reranker", "llm_mistral"}, components)
}

func TestNewLLMRegistry_DefaultFirst(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.DefaultProvider = domain.LLMProviderGroq

	registry := newLLMRegistry(settings, nil)

	assert.Equal(t, domain.LLMProviderGroq, registry.DefaultProvider())
	assert.Empty(t, registry.Providers())
}
