package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"BAAI/bge-m3", "documents_baai_bge_m3"},
		{"bge-m3", "documents_bge_m3"},
		{"nomic-embed-text:v1.5", "documents_nomic_embed_text_v1_5"},
		{"text-embedding-3-small", "documents_text_embedding_3_small"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := CollectionName(tt.model)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsCollectionName(got))
		})
	}
}

func TestSearchFilter_Matches(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		f := SearchFilter{}
		assert.True(t, f.IsEmpty())
		assert.True(t, f.Matches("any"))
	})

	t.Run("single id is exact match", func(t *testing.T) {
		f := SearchFilter{DocIDs: []string{"a"}}
		assert.True(t, f.Matches("a"))
		assert.False(t, f.Matches("ab"))
	})

	t.Run("set of ids is any-of", func(t *testing.T) {
		f := SearchFilter{DocIDs: []string{"a", "c"}}
		assert.True(t, f.Matches("a"))
		assert.True(t, f.Matches("c"))
		assert.False(t, f.Matches("b"))
	})
}

func TestPayloadFromChunk(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Chunk{
		ChunkID:    "doc_p2_c1",
		DocID:      "doc",
		Page:       2,
		ChunkIndex: 1,
		Content:    "bonjour",
		FilePath:   "/tmp/doc.pdf",
		FileHash:   "fh",
		ChunkHash:  "ch",
		CreatedAt:  now,
	}

	p := PayloadFromChunk(c, 3, "bge-m3")

	assert.Equal(t, "bonjour", p.Content)
	assert.Equal(t, "doc", p.DocID)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, "doc_p2_c1", p.ChunkID)
	assert.Equal(t, "ch", p.ChunkHash)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, "bge-m3", p.EmbeddingModel)
	assert.Equal(t, now, p.CreatedAt)
}

func TestHitFromPoint(t *testing.T) {
	p := Point{ID: 7, Payload: Payload{Content: "x", DocID: "d", Page: 1, ChunkID: "d_p1_c1"}}

	hit := HitFromPoint(p, 0.5)

	assert.Equal(t, uint64(7), hit.PointID)
	assert.Equal(t, "d", hit.DocID)
	assert.Equal(t, "d_p1_c1", hit.ChunkID)
	assert.Equal(t, 0.5, hit.Score)
	assert.Equal(t, p.Payload, hit.Metadata)
}
