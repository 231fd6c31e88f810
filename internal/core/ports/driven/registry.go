package driven

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// ExtractorRegistry selects the Extractor for a file by its extension.
type ExtractorRegistry interface {
	// Extract dispatches to the extractor registered for the file extension.
	// Unknown extensions return domain.ErrUnsupportedFileType.
	Extract(ctx context.Context, path string) ([]domain.Page, error)

	// Supports reports whether an extractor is registered for the file.
	Supports(path string) bool

	// Extensions returns the registered extensions in sorted order.
	Extensions() []string
}
