// Package storetest runs a behavioural suite against any driven.VectorStore.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
)

// Dimension is the vector size used by the suite.
const Dimension = 3

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) driven.VectorStore

// Point builds a test point for a document page.
func Point(id uint64, docID string, page, idx int, vec ...float32) domain.Point {
	return domain.Point{
		ID:     id,
		Vector: vec,
		Payload: domain.Payload{
			Content:    fmt.Sprintf("%s page %d chunk %d", docID, page, idx),
			DocID:      docID,
			Page:       page,
			ChunkID:    domain.ChunkID(docID, page, idx),
			ChunkIndex: idx,
			FilePath:   "/docs/" + docID + ".pdf",
			FileHash:   "filehash-" + docID,
			ChunkHash:  fmt.Sprintf("hash-%d", id),
			CreatedAt:  time.Date(2024, 5, 1, 10, 0, int(id), 0, time.UTC),
		},
	}
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) driven.VectorStore {
		t.Helper()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.EnsureCollection(ctx, Dimension))
		return s
	}

	t.Run("EnsureCollectionIdempotent", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.EnsureCollection(ctx, Dimension))
		assert.ErrorIs(t, s.EnsureCollection(ctx, Dimension+1), domain.ErrDimensionMismatch)
	})

	t.Run("EnsureCollectionRejectsZeroDimension", func(t *testing.T) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		assert.ErrorIs(t, s.EnsureCollection(ctx, 0), domain.ErrInvalidInput)
	})

	t.Run("UpsertAndSearch", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{
			Point(1, "a", 1, 1, 1, 0, 0),
			Point(2, "a", 1, 2, 0, 1, 0),
			Point(3, "b", 2, 1, 0.9, 0.1, 0),
		}))

		hits, err := s.Search(ctx, []float32{1, 0, 0}, 2, domain.SearchFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, uint64(1), hits[0].PointID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Equal(t, uint64(3), hits[1].PointID)
		assert.Equal(t, "b", hits[1].DocID)
		assert.Equal(t, 2, hits[1].Page)
		assert.Equal(t, "b_p2_c1", hits[1].ChunkID)
		assert.Equal(t, "b page 2 chunk 1", hits[1].Content)
		assert.Equal(t, "hash-3", hits[1].Metadata.ChunkHash)
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{Point(7, "a", 1, 1, 1, 0, 0)}))
		replaced := Point(7, "a", 1, 1, 0, 1, 0)
		replaced.Payload.Content = "nouveau"
		require.NoError(t, s.Upsert(ctx, []domain.Point{replaced}))

		info, err := s.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, info.PointsCount)

		hits, err := s.Search(ctx, []float32{0, 1, 0}, 5, domain.SearchFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "nouveau", hits[0].Content)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	})

	t.Run("UpsertAllOrNothing", func(t *testing.T) {
		s := open(t)
		err := s.Upsert(ctx, []domain.Point{
			Point(1, "a", 1, 1, 1, 0, 0),
			Point(2, "a", 1, 2, 1, 0),
		})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		info, err := s.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, info.PointsCount)
	})

	t.Run("SearchFilters", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{
			Point(1, "a", 1, 1, 1, 0, 0),
			Point(2, "b", 1, 1, 1, 0, 0),
			Point(3, "c", 1, 1, 1, 0, 0),
		}))

		one, err := s.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{DocIDs: []string{"b"}})
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, "b", one[0].DocID)

		many, err := s.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{DocIDs: []string{"a", "c"}})
		require.NoError(t, err)
		require.Len(t, many, 2)
		assert.Equal(t, uint64(1), many[0].PointID, "ties break by point id")
		assert.Equal(t, uint64(3), many[1].PointID)

		none, err := s.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{DocIDs: []string{"zzz"}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("SearchDimensionMismatch", func(t *testing.T) {
		s := open(t)
		_, err := s.Search(ctx, []float32{1, 0}, 10, domain.SearchFilter{})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("ListDocuments", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{
			Point(1, "zeta", 1, 1, 1, 0, 0),
			Point(2, "alpha", 2, 1, 1, 0, 0),
			Point(3, "alpha", 5, 1, 1, 0, 0),
			Point(4, "alpha", 5, 2, 1, 0, 0),
		}))

		docs, err := s.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "alpha", docs[0].DocID)
		assert.Equal(t, 3, docs[0].ChunksCount)
		assert.Equal(t, 2, docs[0].PagesCount)
		assert.Equal(t, "2-5", docs[0].PagesRange)
		assert.Equal(t, "/docs/alpha.pdf", docs[0].FilePath)
		assert.Equal(t, "zeta", docs[1].DocID)
	})

	t.Run("DeleteDocument", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{
			Point(1, "a", 1, 1, 1, 0, 0),
			Point(2, "a", 2, 1, 1, 0, 0),
			Point(3, "b", 1, 1, 1, 0, 0),
		}))

		n, err := s.DeleteDocument(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.DeleteDocument(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		hashes, err := s.ChunkHashes(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"hash-3"}, hashes)
	})

	t.Run("ClearKeepsDimension", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{Point(1, "a", 1, 1, 1, 0, 0)}))

		require.NoError(t, s.Clear(ctx))

		info, err := s.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, info.PointsCount)
		assert.Equal(t, Dimension, info.Dimension)
		assert.Equal(t, domain.CollectionStatusEmpty, info.Status)

		hashes, err := s.ChunkHashes(ctx)
		require.NoError(t, err)
		assert.Empty(t, hashes)

		assert.NoError(t, s.Upsert(ctx, []domain.Point{Point(2, "b", 1, 1, 0, 0, 1)}))
	})

	t.Run("Info", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{
			Point(1, "a", 1, 1, 1, 0, 0),
			Point(2, "a", 1, 2, 0, 1, 0),
		}))

		info, err := s.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, info.PointsCount)
		assert.Equal(t, 2, info.VectorsCount)
		assert.Equal(t, Dimension, info.Dimension)
		assert.Equal(t, domain.DistanceCosine, info.Distance)
		assert.Equal(t, domain.CollectionStatusGreen, info.Status)
		assert.NotEmpty(t, info.Name)
	})

	t.Run("ChunkHashes", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, []domain.Point{
			Point(1, "a", 1, 1, 1, 0, 0),
			Point(2, "b", 1, 1, 0, 1, 0),
		}))

		hashes, err := s.ChunkHashes(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"hash-1", "hash-2"}, hashes)
	})

	t.Run("Ping", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
