package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

// --- Hand-written fakes shared by the service tests ---

const fakeDims = 4

// fakeEmbedder derives a deterministic vector from the text.
// Texts listed in vectors get that exact vector instead.
type fakeEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	batches   int
	embedded  int
	failBatch int // 1-based batch call that fails; 0 never fails
	pingErr   error
	embedErr  error
}

func (e *fakeEmbedder) vector(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum32()
	v := make([]float32, fakeDims)
	for i := range v {
		v[i] = float32((sum>>(8*i))&0xff) + 1
	}
	return v
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	return e.vector(text), nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches++
	if e.failBatch > 0 && e.batches == e.failBatch {
		return nil, errors.New("embedding backend exploded")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	e.embedded += len(texts)
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return fakeDims }
func (e *fakeEmbedder) ModelName() string { return "fake-embed" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return e.pingErr }
func (e *fakeEmbedder) Close() error { return nil }

func (e *fakeEmbedder) batchCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

// paragraphChunker cuts each page on blank lines, one chunk per paragraph.
type paragraphChunker struct{}

func (paragraphChunker) Split(src domain.ChunkSource, pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, p := range pages {
		idx := 0
		for _, para := range strings.Split(p.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			idx++
			chunks = append(chunks, domain.Chunk{
				ChunkID:    domain.ChunkID(src.DocID, p.Number, idx),
				DocID:      src.DocID,
				Page:       p.Number,
				ChunkIndex: idx,
				Content:    para,
				FilePath:   src.FilePath,
				FileHash:   src.FileHash,
			})
		}
	}
	return chunks, nil
}

// fakeReranker scores passages from a lookup table.
type fakeReranker struct {
	scores  map[string]float64
	err     error
	pingErr error
	calls   int
}

func (r *fakeReranker) Rerank(_ context.Context, _ string, passages []string) ([]float64, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	out := make([]float64, len(passages))
	for i, p := range passages {
		out[i] = r.scores[p]
	}
	return out, nil
}

func (r *fakeReranker) ModelName() string { return "fake-rerank" }
func (r *fakeReranker) Ping(_ context.Context) error { return r.pingErr }
func (r *fakeReranker) Close() error { return nil }

// fakeLLM returns a canned reply and records the last prompt.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	pingErr  error
	pings    int
	prompts  []string
	lastOpts driven.GenerateOptions
	closed   bool
}

func (l *fakeLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	l.lastOpts = opts
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *fakeLLM) ModelName() string { return "fake-llm" }
func (l *fakeLLM) Ping(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pings++
	return l.pingErr
}

func (l *fakeLLM) setPingErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pingErr = err
}

func (l *fakeLLM) pingCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pings
}
func (l *fakeLLM) Close() error {
	l.closed = true
	return nil
}

func (l *fakeLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

func (l *fakeLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

// fakePrompts serves templates from a map.
type fakePrompts map[string]string

func (p fakePrompts) Load(name string) (string, error) {
	if t, ok := p[name]; ok {
		return t, nil
	}
	return "", domain.ErrNotFound
}

func (p fakePrompts) Reload() {}

func testPrompts() fakePrompts {
	return fakePrompts{
		driven.PromptRAGAnswer:        "CONTEXTE:\n%s\nQUESTION: %s",
		driven.PromptStructuredOutput: "REPONDS EN JSON",
	}
}

// failingStore wraps a store and fails selected operations.
type failingStore struct {
	driven.VectorStore
	hashesErr error
	searchErr error
	pingErr   error
}

func (s *failingStore) ChunkHashes(ctx context.Context) ([]string, error) {
	if s.hashesErr != nil {
		return nil, s.hashesErr
	}
	return s.VectorStore.ChunkHashes(ctx)
}

func (s *failingStore) Search(ctx context.Context, v []float32, limit int, f domain.SearchFilter) ([]domain.SearchHit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.VectorStore.Search(ctx, v, limit, f)
}

func (s *failingStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.VectorStore.Ping(ctx)
}
