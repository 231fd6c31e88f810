package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "rapport_p1_c1", ChunkID("rapport", 1, 1))
	assert.Equal(t, "rapport_p12_c3", ChunkID("rapport", 12, 3))
	// Stable across calls.
	assert.Equal(t, ChunkID("doc", 2, 4), ChunkID("doc", 2, 4))
}

func TestPagesRange(t *testing.T) {
	tests := []struct {
		name  string
		pages []int
		want  string
	}{
		{"empty", nil, "0"},
		{"single page", []int{3}, "3-3"},
		{"ordered", []int{1, 2, 3}, "1-3"},
		{"unordered", []int{7, 2, 5}, "2-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PagesRange(tt.pages))
		})
	}
}

func TestIngestionStats_Add(t *testing.T) {
	var stats IngestionStats

	stats.Add(IngestionResult{DocID: "a", Success: true, ChunksCreated: 4})
	stats.Add(IngestionResult{DocID: "b", Success: true, ChunksCreated: 0, ChunksSkipped: 5})
	stats.Add(IngestionResult{DocID: "c", Success: false, Error: "boom"})
	stats.Add(IngestionResult{DocID: "d", Success: true, ChunksCreated: 1})

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 5, stats.TotalChunks)
	assert.Len(t, stats.Results, 4)
}

func TestIngestionResult_Skipped(t *testing.T) {
	assert.True(t, IngestionResult{Success: true}.Skipped())
	assert.False(t, IngestionResult{Success: true, ChunksCreated: 1}.Skipped())
	assert.False(t, IngestionResult{Success: false}.Skipped())
}
