package driven

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// Extractor turns a file into per-page text.
type Extractor interface {
	// Extensions returns the lower-case file extensions handled, with the dot (".pdf").
	Extensions() []string

	// Extract reads the file and returns its non-empty pages in order.
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}
