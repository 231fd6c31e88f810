package driven

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// VectorStore owns a single collection of points and is the only
// component that persists chunks.
//
// Implementations open their backing storage lazily and at most once;
// connection failures surface as errors wrapping domain.ErrVectorStoreUnavailable.
type VectorStore interface {
	// EnsureCollection creates the collection if absent. The dimension is
	// fixed at creation; a different dimension on an existing collection
	// returns domain.ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert stores points, overwriting any point with the same ID.
	// A call either stores every point or none of them.
	Upsert(ctx context.Context, points []domain.Point) error

	// Search returns up to limit points ranked by descending cosine similarity,
	// restricted by filter.
	Search(ctx context.Context, vector []float32, limit int, filter domain.SearchFilter) ([]domain.SearchHit, error)

	// ListDocuments groups stored payloads by doc_id, sorted by doc_id.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)

	// DeleteDocument removes every point of a document and returns how many were removed.
	DeleteDocument(ctx context.Context, docID string) (int, error)

	// Clear drops and recreates the collection with the same dimension and metric.
	Clear(ctx context.Context) error

	// Info describes the collection.
	Info(ctx context.Context) (*domain.CollectionInfo, error)

	// ChunkHashes returns the fingerprints of every stored point.
	ChunkHashes(ctx context.Context) ([]string, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
