package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil collection service returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns documents successfully", func(t *testing.T) {
		collection := &mockCollectionService{
			documents: []domain.DocumentInfo{
				{DocID: "contrat", ChunksCount: 12, PagesCount: 3, PagesRange: "1-3"},
			},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Collection: collection})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, documentsURI, result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"doc_id": "contrat"`)
		assert.Contains(t, result.Contents[0].Text, `"pages_range": "1-3"`)
	})

	t.Run("empty collection returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Collection: &mockCollectionService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		collection := &mockCollectionService{err: errors.New("database error")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Collection: collection})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleCollectionResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil collection service returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, err = server.handleCollectionResource(ctx, makeReadResourceRequest(collectionURI))

		require.Error(t, err)
	})

	t.Run("returns collection info", func(t *testing.T) {
		collection := &mockCollectionService{
			info: &domain.CollectionInfo{
				Name:         "documents_bge_m3",
				PointsCount:  42,
				VectorsCount: 42,
				Dimension:    1024,
				Distance:     domain.DistanceCosine,
				Status:       "green",
			},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Collection: collection})
		require.NoError(t, err)

		result, err := server.handleCollectionResource(ctx, makeReadResourceRequest(collectionURI))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "documents_bge_m3")
		assert.Contains(t, result.Contents[0].Text, "42")
		assert.Contains(t, result.Contents[0].Text, "1024")
	})

	t.Run("returns error on info failure", func(t *testing.T) {
		collection := &mockCollectionService{err: errors.New("storage error")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Collection: collection})
		require.NoError(t, err)

		_, err = server.handleCollectionResource(ctx, makeReadResourceRequest(collectionURI))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting collection info")
	})
}
