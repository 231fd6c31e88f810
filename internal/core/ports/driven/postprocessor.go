package driven

import "github.com/custodia-labs/ragpipe/internal/core/domain"

// Chunker splits extracted pages into retrievable chunks.
type Chunker interface {
	// Split chunks every page in order. Chunk indices restart at 1 on each page.
	Split(src domain.ChunkSource, pages []domain.Page) ([]domain.Chunk, error)
}
