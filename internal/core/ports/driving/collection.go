package driving

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// CollectionService inspects and maintains the vector store collection.
type CollectionService interface {
	// ListDocuments returns one entry per stored document, sorted by doc_id.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)

	// DeleteDocument removes a document. It reports false when nothing was stored for docID.
	DeleteDocument(ctx context.Context, docID string) (bool, error)

	// ClearCollection drops every point. The collection is recreated empty.
	ClearCollection(ctx context.Context) (bool, error)

	// GetCollectionInfo describes the collection.
	GetCollectionInfo(ctx context.Context) (*domain.CollectionInfo, error)

	// HealthCheck reports the availability of each component.
	HealthCheck(ctx context.Context) domain.HealthReport
}
