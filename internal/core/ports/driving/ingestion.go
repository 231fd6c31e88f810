package driving

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// IngestionService adds documents to the vector store.
type IngestionService interface {
	// IngestDocument chunks, embeds and stores a file. An empty docID
	// defaults to the file stem. Chunks already stored are skipped.
	IngestDocument(ctx context.Context, path, docID string) domain.IngestionResult

	// IngestDirectory ingests every supported file under dir.
	IngestDirectory(ctx context.Context, dir string) (*domain.IngestionStats, error)

	// Rebuild clears the collection, then ingests dir with nothing skipped.
	Rebuild(ctx context.Context, dir string) (*domain.IngestionStats, error)

	// Supports reports whether a file type can be ingested.
	Supports(path string) bool
}
