package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// indexMaintainer performs collection mutations that must keep the
// ingestion dedup set in step with the store.
type indexMaintainer interface {
	DeleteDocument(ctx context.Context, docID string) (int, error)
	Clear(ctx context.Context) error
}

// CollectionService manages the indexed documents and reports health.
type CollectionService struct {
	collection string
	store      driven.VectorStore
	maintainer indexMaintainer
	embedder   driven.EmbeddingService
	reranker   driven.Reranker
	llms       *LLMRegistry
}

// NewCollectionService creates a collection service.
// The reranker is optional (can be nil).
func NewCollectionService(
	collection string,
	store driven.VectorStore,
	maintainer indexMaintainer,
	embedder driven.EmbeddingService,
	reranker driven.Reranker,
	llms *LLMRegistry,
) *CollectionService {
	return &CollectionService{
		collection: collection,
		store:      store,
		maintainer: maintainer,
		embedder:   embedder,
		reranker:   reranker,
		llms:       llms,
	}
}

// ListDocuments returns one summary per indexed document, sorted by ID.
func (s *CollectionService) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.DocumentInfo{}, nil
		}
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes every chunk of a document. It reports false when
// the document was not indexed.
func (s *CollectionService) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return false, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	n, err := s.maintainer.DeleteDocument(ctx, docID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearCollection removes every chunk and keeps the collection.
func (s *CollectionService) ClearCollection(ctx context.Context) (bool, error) {
	if err := s.maintainer.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetCollectionInfo describes the collection. A collection that was never
// created is reported as empty.
func (s *CollectionService) GetCollectionInfo(ctx context.Context) (*domain.CollectionInfo, error) {
	info, err := s.store.Info(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.CollectionInfo{
			Name:     s.collection,
			Distance: domain.DistanceCosine,
			Status:   domain.CollectionStatusEmpty,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collection info: %w", err)
	}
	return info, nil
}

// HealthCheck pings every component. An unconfigured reranker is reported
// as unavailable.
func (s *CollectionService) HealthCheck(ctx context.Context) domain.HealthReport {
	logger.Section("Health Check")
	report := domain.HealthReport{
		domain.ComponentEmbedding:   s.ping(ctx, domain.ComponentEmbedding, s.embedder),
		domain.ComponentVectorStore: s.ping(ctx, domain.ComponentVectorStore, s.store),
		domain.ComponentReranker:    false,
	}
	if s.reranker != nil {
		report[domain.ComponentReranker] = s.ping(ctx, domain.ComponentReranker, s.reranker)
	}
	if s.llms != nil {
		for p, ok := range s.llms.Health(ctx) {
			report[domain.LLMComponent(p)] = ok
		}
	}
	return report
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *CollectionService) ping(ctx context.Context, name string, p pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		logger.Debug("%s unavailable: %v", name, err)
		return false
	}
	return true
}
