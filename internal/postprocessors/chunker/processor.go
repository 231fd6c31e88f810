// Package chunker splits extracted page text into overlapping fixed-size chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// MaxChunksPerPage bounds the chunks produced from a single page.
const MaxChunksPerPage = 1000

const (
	// minBacktrackLen is the shortest chunk a word-boundary backtrack may leave.
	minBacktrackLen = 100

	// backtrackWindow is the fraction of the window after which a space
	// must lie for the cut to move back to it.
	backtrackWindow = 0.8
)

// Chunker splits pages into chunks. Window boundaries depend on content:
// each window starts overlap characters before the end of the previous one,
// and ends are pulled back to whitespace to avoid splitting words.
// Lengths are counted in runes.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split chunks every page in order. Chunk indices restart at 1 on each page.
// Whitespace-only pages produce no chunks.
func (c *Chunker) Split(src domain.ChunkSource, pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, page := range pages {
		texts, err := c.splitText(page.Text)
		if err != nil {
			logger.Warn("chunker: %s page %d: %v", src.DocID, page.Number, err)
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		for i, text := range texts {
			idx := i + 1
			chunks = append(chunks, domain.Chunk{
				ChunkID:    domain.ChunkID(src.DocID, page.Number, idx),
				DocID:      src.DocID,
				Page:       page.Number,
				ChunkIndex: idx,
				Content:    text,
				FilePath:   src.FilePath,
				FileHash:   src.FileHash,
			})
		}
	}
	return chunks, nil
}

// splitText returns the trimmed chunk texts of one page.
func (c *Chunker) splitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= c.chunkSize {
		return []string{strings.TrimSpace(text)}, nil
	}

	var out []string
	start := 0
	for start < n {
		end := c.windowEnd(runes, start)

		if content := strings.TrimSpace(string(runes[start:end])); content != "" {
			out = append(out, content)
			if len(out) > MaxChunksPerPage {
				return nil, fmt.Errorf("%w: more than %d", domain.ErrTooManyChunks, MaxChunksPerPage)
			}
		}

		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out, nil
}

// windowEnd returns the exclusive end of the window starting at start.
// When the cut falls inside a word, it moves back to the last whitespace
// of the window if that whitespace lies in the final 20% of the window
// and leaves at least minBacktrackLen characters.
func (c *Chunker) windowEnd(runes []rune, start int) int {
	n := len(runes)
	end := start + c.chunkSize
	if end >= n {
		return n
	}
	if unicode.IsSpace(runes[end-1]) || unicode.IsSpace(runes[end]) {
		return end
	}

	window := runes[start:end]
	if len(window) <= minBacktrackLen {
		return end
	}

	lastSpace := -1
	for i := len(window) - 1; i >= 0; i-- {
		if unicode.IsSpace(window[i]) {
			lastSpace = i
			break
		}
	}
	if lastSpace >= minBacktrackLen && float64(lastSpace) > float64(len(window))*backtrackWindow {
		return start + lastSpace
	}
	return end
}
