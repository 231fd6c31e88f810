package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

func TestNewLLMService_Defaults(t *testing.T) {
	s := NewLLMService(LLMConfig{})
	assert.Equal(t, DefaultLLMModel, s.ModelName())
	assert.Equal(t, DefaultBaseURL, s.api.BaseURL())
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "  {\"answer\": \"ok\"}\n"},
			Done:    true,
		})
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "mistral:latest"})
	out, err := s.Generate(context.Background(), "Question?", driven.GenerateOptions{
		MaxTokens: 2000, Temperature: 0.2, TopP: 0.9,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"answer": "ok"}`, out)
	assert.Equal(t, "mistral:latest", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, chatMessage{Role: "user", Content: "Question?"}, got.Messages[0])
	assert.Equal(t, 2000, got.Options.NumPredict)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.InDelta(t, 0.9, got.Options.TopP, 1e-9)
	assert.Equal(t, 40, got.Options.TopK)
	assert.InDelta(t, 1.1, got.Options.RepeatPenalty, 1e-9)
}

func TestGenerate_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := NewLLMService(LLMConfig{BaseURL: srv.URL}).Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorContains(t, err, "ollama: status 404: model not found")
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewLLMService(LLMConfig{BaseURL: url}).Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPing_ModelLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": [{"name": "mistral:latest", "model": "mistral:latest"}, {"name": "bge-m3:latest"}]}`))
	}))
	defer srv.Close()

	tests := []struct {
		model   string
		wantErr bool
	}{
		{"mistral:latest", false},
		{"mistral", false},
		{"bge-m3", false},
		{"mistral:7b", true},
		{"llama3.2", true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			err := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: tt.model}).Ping(context.Background())
			if tt.wantErr {
				assert.ErrorContains(t, err, "ollama pull "+tt.model)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPing_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewLLMService(LLMConfig{BaseURL: srv.URL}).Ping(context.Background())
	assert.ErrorContains(t, err, "status 500")
}
