package storage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRank(t *testing.T) {
	hits := []domain.SearchHit{
		{PointID: 3, Score: 0.5},
		{PointID: 1, Score: 0.9},
		{PointID: 2, Score: 0.5},
		{PointID: 4, Score: 0.1},
	}

	got := Rank(hits, 3)

	require.Len(t, got, 3)
	assert.Equal(t, uint64(1), got[0].PointID)
	assert.Equal(t, uint64(2), got[1].PointID)
	assert.Equal(t, uint64(3), got[2].PointID)
}

func TestRank_Limits(t *testing.T) {
	hits := []domain.SearchHit{{PointID: 1, Score: 1}}
	assert.Len(t, Rank(hits, 10), 1)
	assert.Empty(t, Rank(hits, 0))
	assert.Empty(t, Rank(hits, -1))
}

func TestDocumentAggregator(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	agg := NewDocumentAggregator()
	agg.Add(domain.Payload{DocID: "zeta", Page: 1, FilePath: "/d/zeta.txt", CreatedAt: t2})
	agg.Add(domain.Payload{DocID: "alpha", Page: 3, FilePath: "/d/alpha.pdf", CreatedAt: t2})
	agg.Add(domain.Payload{DocID: "alpha", Page: 1, CreatedAt: t1})
	agg.Add(domain.Payload{DocID: "alpha", Page: 3, CreatedAt: t2})

	docs := agg.Documents()

	require.Len(t, docs, 2)
	assert.Equal(t, domain.DocumentInfo{
		DocID: "alpha", ChunksCount: 3, PagesCount: 2, PagesRange: "1-3",
		FilePath: "/d/alpha.pdf", CreatedAt: t1,
	}, docs[0])
	assert.Equal(t, "zeta", docs[1].DocID)
	assert.Equal(t, "1-1", docs[1].PagesRange)
}

func TestDocumentAggregator_Empty(t *testing.T) {
	assert.Empty(t, NewDocumentAggregator().Documents())
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -1.5, 3.25, float32(math.Pi)}

	b := EncodeVector(v)

	assert.Len(t, b, 16)
	assert.Equal(t, v, DecodeVector(b))
	assert.Nil(t, EncodeVector(nil))
	assert.Nil(t, DecodeVector(nil))
}
