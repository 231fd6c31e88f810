package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragpipe/internal/adapters/driven/storage"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// It backs --memory runs and service tests; nothing survives the process.
type VectorStore struct {
	mu        sync.RWMutex
	name      string
	dimension int
	created   bool
	closed    bool
	points    map[uint64]domain.Point
}

// NewVectorStore creates an empty store for the named collection.
func NewVectorStore(name string) *VectorStore {
	return &VectorStore{
		name:   name,
		points: make(map[uint64]domain.Point),
	}
}

func (s *VectorStore) checkOpen() error {
	if s.closed {
		return fmt.Errorf("%w: store closed", domain.ErrVectorStoreUnavailable)
	}
	return nil
}

// EnsureCollection creates the collection on first call.
func (s *VectorStore) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.created {
		s.dimension = dimension
		s.created = true
		return nil
	}
	if s.dimension != dimension {
		return fmt.Errorf("%w: collection %s has %d, got %d",
			domain.ErrDimensionMismatch, s.name, s.dimension, dimension)
	}
	return nil
}

// Upsert stores copies of the points. Validation happens before any write.
func (s *VectorStore) Upsert(_ context.Context, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.created {
		return fmt.Errorf("collection %s: %w", s.name, domain.ErrNotFound)
	}
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: point %d has %d, want %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), s.dimension)
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		p.Vector = vec
		s.points[p.ID] = p
	}
	return nil
}

// Search scans every point matching the filter.
func (s *VectorStore) Search(_ context.Context, vector []float32, limit int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !s.created {
		return []domain.SearchHit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}

	hits := make([]domain.SearchHit, 0, len(s.points))
	for _, p := range s.points {
		if !filter.Matches(p.Payload.DocID) {
			continue
		}
		hits = append(hits, domain.HitFromPoint(p, storage.Cosine(vector, p.Vector)))
	}
	return storage.Rank(hits, limit), nil
}

// ListDocuments aggregates payloads by doc_id.
func (s *VectorStore) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	agg := storage.NewDocumentAggregator()
	for _, p := range s.points {
		agg.Add(p.Payload)
	}
	return agg.Documents(), nil
}

// DeleteDocument removes the points of one document.
func (s *VectorStore) DeleteDocument(_ context.Context, docID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	n := 0
	for id, p := range s.points {
		if p.Payload.DocID == docID {
			delete(s.points, id)
			n++
		}
	}
	return n, nil
}

// Clear removes every point and keeps the dimension.
func (s *VectorStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.points = make(map[uint64]domain.Point)
	return nil
}

// Info describes the collection.
func (s *VectorStore) Info(_ context.Context) (*domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !s.created {
		return nil, fmt.Errorf("collection %s: %w", s.name, domain.ErrNotFound)
	}
	status := domain.CollectionStatusGreen
	if len(s.points) == 0 {
		status = domain.CollectionStatusEmpty
	}
	return &domain.CollectionInfo{
		Name:         s.name,
		PointsCount:  len(s.points),
		VectorsCount: len(s.points),
		Dimension:    s.dimension,
		Distance:     domain.DistanceCosine,
		Status:       status,
	}, nil
}

// ChunkHashes returns the fingerprint of every stored point.
func (s *VectorStore) ChunkHashes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(s.points))
	for _, p := range s.points {
		if p.Payload.ChunkHash != "" {
			hashes = append(hashes, p.Payload.ChunkHash)
		}
	}
	return hashes, nil
}

// Ping fails once the store is closed.
func (s *VectorStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}

// Close marks the store unavailable.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
