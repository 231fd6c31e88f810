package domain

import (
	"fmt"
	"time"
)

// Page is the extracted text of one page of a source file.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the raw extracted text.
	Text string
}

// ChunkSource identifies the file a set of pages was extracted from.
type ChunkSource struct {
	DocID    string
	FilePath string
	FileHash string
}

// Chunk represents a retrievable unit of a document page.
// Chunks are created by the chunker, receive their embedding during
// ingestion and are never mutated after they are stored.
type Chunk struct {
	// ChunkID is "{doc_id}_p{page}_c{chunk_index}", stable across runs.
	ChunkID string

	// DocID identifies the source document (the file stem by default).
	DocID string

	// Page is the 1-based page the chunk was cut from.
	Page int

	// ChunkIndex is the 1-based position of the chunk within its page.
	ChunkIndex int

	// Content is the chunk text, trimmed of surrounding whitespace.
	Content string

	// FilePath is the path the document was ingested from.
	FilePath string

	// FileHash is the SHA-256 of the whole source file.
	FileHash string

	// ChunkHash is the content fingerprint used for deduplication.
	ChunkHash string

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time

	// Embedding is the vector representation, set during ingestion.
	Embedding []float32
}

// ChunkID builds the deterministic chunk identifier.
func ChunkID(docID string, page, chunkIndex int) string {
	return fmt.Sprintf("%s_p%d_c%d", docID, page, chunkIndex)
}

// DocumentInfo is an aggregate view over the stored points of one document.
// It is computed on demand and never persisted.
type DocumentInfo struct {
	DocID       string    `json:"doc_id"`
	ChunksCount int       `json:"chunks_count"`
	PagesCount  int       `json:"pages_count"`
	PagesRange  string    `json:"pages_range"`
	FilePath    string    `json:"file_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PagesRange formats a set of page numbers as "min-max", or "0" when empty.
func PagesRange(pages []int) string {
	if len(pages) == 0 {
		return "0"
	}
	lo, hi := pages[0], pages[0]
	for _, p := range pages[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}

// IngestionResult is the outcome of ingesting a single file.
type IngestionResult struct {
	DocID          string `json:"doc_id"`
	FilePath       string `json:"file_path"`
	ChunksCreated  int    `json:"chunks_created"`
	ChunksSkipped  int    `json:"chunks_skipped"`
	PagesProcessed int    `json:"pages_processed"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

// Skipped reports whether the file was already fully indexed.
func (r IngestionResult) Skipped() bool {
	return r.Success && r.ChunksCreated == 0
}

// IngestionStats summarises a directory sweep.
type IngestionStats struct {
	Processed   int `json:"processed"`
	Skipped     int `json:"skipped"`
	Errors      int `json:"errors"`
	TotalChunks int `json:"total_chunks"`

	// Results holds the per-file outcomes in walk order.
	Results []IngestionResult `json:"results,omitempty"`
}

// Add folds a single file result into the stats.
func (s *IngestionStats) Add(r IngestionResult) {
	s.Results = append(s.Results, r)
	switch {
	case !r.Success:
		s.Errors++
	case r.ChunksCreated == 0:
		s.Skipped++
	default:
		s.Processed++
		s.TotalChunks += r.ChunksCreated
	}
}
