package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

const testQuery = "question"

// seedPoints stores three chunks whose similarity to testQuery is
// alpha (1.0) > beta (0.8) > gamma (0.0).
func seedPoints(t *testing.T, store *memory.VectorStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, fakeDims))
	points := []domain.Point{
		{ID: 1, Vector: []float32{1, 0, 0, 0}, Payload: domain.Payload{DocID: "guide", Page: 1, Content: "alpha", ChunkHash: "h1"}},
		{ID: 2, Vector: []float32{0.8, 0.6, 0, 0}, Payload: domain.Payload{DocID: "guide", Page: 2, Content: "beta", ChunkHash: "h2"}},
		{ID: 3, Vector: []float32{0, 1, 0, 0}, Payload: domain.Payload{DocID: "notes", Page: 1, Content: "gamma", ChunkHash: "h3"}},
	}
	require.NoError(t, store.Upsert(ctx, points))
}

type pipelineFixture struct {
	pipeline *Pipeline
	store    *memory.VectorStore
	embedder *fakeEmbedder
	llm      *fakeLLM
}

func newTestPipeline(t *testing.T, reranker driven.Reranker, settings domain.RetrievalSettings) *pipelineFixture {
	t.Helper()
	store := memory.NewVectorStore("documents_test")
	seedPoints(t, store)
	embedder := &fakeEmbedder{vectors: map[string][]float32{testQuery: {1, 0, 0, 0}}}
	llm := &fakeLLM{reply: validReply}
	registry := NewLLMRegistry(domain.LLMProviderMistral)
	registry.Register(domain.LLMProviderMistral, llm, driven.GenerateOptions{})
	return &pipelineFixture{
		pipeline: NewPipeline(embedder, store, reranker, registry, testPrompts(), settings),
		store:    store,
		embedder: embedder,
		llm:      llm,
	}
}

// contextOrder returns the positions of the given contents in the prompt context.
func contextOrder(prompt string, contents ...string) []int {
	out := make([]int, len(contents))
	for i, c := range contents {
		out[i] = strings.Index(prompt, "Contenu: "+c+"\n")
	}
	return out
}

func TestPipelineSearch_Success(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{})

	require.True(t, resp.Success, resp.ErrorMessage)
	assert.Equal(t, "La réponse.", resp.Answer)
	assert.Equal(t, []domain.Citation{{DocID: "guide", Page: 2}}, resp.Citations)
	assert.InDelta(t, 0.8, resp.Confidence, 1e-9)
	assert.Equal(t, domain.LLMProviderMistral, resp.Provider)
	assert.False(t, resp.Reranked)
	assert.NotEmpty(t, resp.RequestID)
	assert.GreaterOrEqual(t, resp.ProcessingTime, 0.0)

	require.Len(t, resp.Sources, 3)
	assert.Equal(t, "guide", resp.Sources[0].DocID)
	assert.Equal(t, "alpha", resp.Sources[0].ContentPreview)
	assert.InDelta(t, 1.0, resp.Sources[0].Score, 1e-6)

	prompt := f.llm.lastPrompt()
	assert.Contains(t, prompt, "\nDocument: guide\nPage: 1\nContenu: alpha\n---")
	assert.Contains(t, prompt, "QUESTION: question")
	assert.True(t, strings.HasSuffix(prompt, "\n\nREPONDS EN JSON"))
	pos := contextOrder(prompt, "alpha", "beta", "gamma")
	assert.Less(t, pos[0], pos[1])
	assert.Less(t, pos[1], pos[2])
}

func TestPipelineSearch_NoCitationsNoSources(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})
	f.llm.reply = `{"answer": "Aucune information pertinente trouvée.", "citations": [], "claims": []}`

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{})

	require.True(t, resp.Success)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.Sources)
	assert.NotNil(t, resp.Sources)
}

func TestPipelineSearch_EmptyQuery(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})

	resp := f.pipeline.Search(context.Background(), "   ", domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Answer, "Erreur lors de la recherche: "))
	assert.NotEmpty(t, resp.ErrorMessage)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.Sources)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, 0, f.llm.calls())
}

func TestPipelineSearch_InvalidProvider(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{Provider: "gpt-9"})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "gpt-9")
	assert.Equal(t, 0, f.llm.calls())
}

func TestPipelineSearch_Limit(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{Limit: 1})

	require.True(t, resp.Success)
	assert.Len(t, resp.Sources, 1)
	prompt := f.llm.lastPrompt()
	assert.Contains(t, prompt, "Contenu: alpha")
	assert.NotContains(t, prompt, "Contenu: beta")
}

func TestPipelineSearch_DocumentFilter(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{DocIDs: []string{"notes"}})

	require.True(t, resp.Success)
	prompt := f.llm.lastPrompt()
	assert.Contains(t, prompt, "Contenu: gamma")
	assert.NotContains(t, prompt, "Contenu: alpha")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "notes", resp.Sources[0].DocID)
}

func TestPipelineSearch_EmptyCollection(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})
	require.NoError(t, f.store.Clear(context.Background()))

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{})

	require.True(t, resp.Success)
	assert.Contains(t, f.llm.lastPrompt(), "Aucun document pertinent trouvé.")
	assert.Empty(t, resp.Sources)
}

func TestPipelineSearch_Reranking(t *testing.T) {
	reranker := &fakeReranker{scores: map[string]float64{"alpha": 0.1, "beta": 0.5, "gamma": 0.9}}
	f := newTestPipeline(t, reranker, domain.RetrievalSettings{})

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{Limit: 2, UseReranking: true})

	require.True(t, resp.Success)
	assert.True(t, resp.Reranked)
	assert.Equal(t, 1, reranker.calls)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "notes", resp.Sources[0].DocID)
	assert.InDelta(t, 0.9, resp.Sources[0].Score, 1e-9)
	assert.Equal(t, "beta", resp.Sources[1].ContentPreview)

	pos := contextOrder(f.llm.lastPrompt(), "gamma", "beta", "alpha")
	assert.Less(t, pos[0], pos[1])
	assert.Equal(t, -1, pos[2])
}

func TestPipelineSearch_RerankTopKCap(t *testing.T) {
	reranker := &fakeReranker{scores: map[string]float64{"alpha": 0.1, "beta": 0.5, "gamma": 0.9}}
	f := newTestPipeline(t, reranker, domain.RetrievalSettings{RerankTopK: 1})

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{Limit: 3, UseReranking: true})

	require.True(t, resp.Success)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "notes", resp.Sources[0].DocID)
}

func TestPipelineSearch_RerankerDegrades(t *testing.T) {
	tests := []struct {
		name     string
		reranker driven.Reranker
	}{
		{"no reranker", nil},
		{"reranker error", &fakeReranker{err: domain.ErrRerankerUnavailable}},
		{"wrong score count", &fakeReranker{scores: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reranker := tt.reranker
			if fr, ok := reranker.(*fakeReranker); ok && fr.err == nil {
				reranker = shortReranker{fr}
			}
			f := newTestPipeline(t, reranker, domain.RetrievalSettings{})

			resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{Limit: 2, UseReranking: true})

			require.True(t, resp.Success)
			assert.False(t, resp.Reranked)
			require.Len(t, resp.Sources, 2)
			assert.Equal(t, "alpha", resp.Sources[0].ContentPreview)
			assert.Equal(t, "beta", resp.Sources[1].ContentPreview)
		})
	}
}

// shortReranker returns one score fewer than there are passages.
type shortReranker struct{ *fakeReranker }

func (r shortReranker) Rerank(ctx context.Context, q string, passages []string) ([]float64, error) {
	scores, err := r.fakeReranker.Rerank(ctx, q, passages)
	if err != nil || len(scores) == 0 {
		return scores, err
	}
	return scores[1:], nil
}

func TestPipelineSearch_EmbeddingFailure(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})
	f.embedder.embedErr = domain.ErrEmbeddingUnavailable

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "embed query")
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 0, f.llm.calls())
}

func TestPipelineSearch_StoreFailure(t *testing.T) {
	store := memory.NewVectorStore("documents_test")
	seedPoints(t, store)
	registry := NewLLMRegistry(domain.LLMProviderMistral)
	registry.Register(domain.LLMProviderMistral, &fakeLLM{reply: validReply}, driven.GenerateOptions{})
	p := NewPipeline(&fakeEmbedder{}, &failingStore{VectorStore: store, searchErr: errors.New("disk on fire")},
		nil, registry, testPrompts(), domain.RetrievalSettings{})

	resp := p.Search(context.Background(), testQuery, domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Answer, "disk on fire")
}

func TestPipelineSearch_GenerationFailure(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})
	f.llm.err = errors.New("boom")

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.Equal(t, "Erreur lors de la génération avec Mistral: boom", resp.Answer)
	assert.Contains(t, resp.ErrorMessage, "boom")
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, domain.LLMProviderMistral, resp.Provider)
}

func TestPipelineSearch_LLMUnavailable(t *testing.T) {
	f := newTestPipeline(t, nil, domain.RetrievalSettings{})
	f.llm.pingErr = errors.New("connection refused")

	resp := f.pipeline.Search(context.Background(), testQuery, domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.Equal(t, "Mistral non disponible", resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 0, f.llm.calls())
}

func TestPipelineSearch_MissingPrompt(t *testing.T) {
	store := memory.NewVectorStore("documents_test")
	seedPoints(t, store)
	registry := NewLLMRegistry(domain.LLMProviderMistral)
	registry.Register(domain.LLMProviderMistral, &fakeLLM{reply: validReply}, driven.GenerateOptions{})
	p := NewPipeline(&fakeEmbedder{}, store, nil, registry, fakePrompts{}, domain.RetrievalSettings{})

	resp := p.Search(context.Background(), testQuery, domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "rag_answer")
}

// panickingEmbedder panics on query embedding.
type panickingEmbedder struct{ fakeEmbedder }

func (*panickingEmbedder) Embed(context.Context, string) ([]float32, error) {
	panic("nil map write")
}

func TestPipelineSearch_RecoversFromPanic(t *testing.T) {
	store := memory.NewVectorStore("documents_test")
	registry := NewLLMRegistry(domain.LLMProviderMistral)
	p := NewPipeline(&panickingEmbedder{}, store, nil, registry, testPrompts(), domain.RetrievalSettings{})

	resp := p.Search(context.Background(), testQuery, domain.SearchOptions{})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "nil map write")
	assert.NotEmpty(t, resp.RequestID)
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "Aucun document pertinent trouvé.", buildContext(nil))

	got := buildContext([]domain.SearchHit{
		{DocID: "guide", Page: 1, Content: "alpha"},
		{DocID: "notes", Page: 3, Content: "gamma"},
	})
	want := "\nDocument: guide\nPage: 1\nContenu: alpha\n---\n\nDocument: notes\nPage: 3\nContenu: gamma\n---"
	assert.Equal(t, want, got)
}

func TestPreview(t *testing.T) {
	short := "é court"
	assert.Equal(t, short, preview(short))

	long := strings.Repeat("é", 250)
	got := preview(long)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}
