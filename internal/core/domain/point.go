package domain

import (
	"strings"
	"time"
)

// Distance metrics supported by collections.
const (
	DistanceCosine = "cosine"
)

// Collection status values reported by CollectionInfo.
const (
	CollectionStatusGreen = "green"
	CollectionStatusEmpty = "empty"
)

// collectionPrefix is shared by every collection created by ragpipe.
const collectionPrefix = "documents_"

// Point is a chunk as persisted in the vector store.
type Point struct {
	// ID is the stable point identity; upserting an existing ID overwrites it.
	ID uint64

	// Vector is the chunk embedding.
	Vector []float32

	// Payload is the stored metadata.
	Payload Payload
}

// Payload is the metadata stored with each point. Its JSON form is the
// on-disk contract: fields may be added but never renamed or removed.
type Payload struct {
	Content        string    `json:"content"`
	DocID          string    `json:"doc_id"`
	Page           int       `json:"page"`
	ChunkID        string    `json:"chunk_id"`
	ChunkIndex     int       `json:"chunk_index,omitempty"`
	FilePath       string    `json:"file_path"`
	FileHash       string    `json:"file_hash"`
	ChunkHash      string    `json:"chunk_hash"`
	TotalPages     int       `json:"total_pages,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PayloadFromChunk builds the stored payload for a chunk.
func PayloadFromChunk(c Chunk, totalPages int, model string) Payload {
	return Payload{
		Content:        c.Content,
		DocID:          c.DocID,
		Page:           c.Page,
		ChunkID:        c.ChunkID,
		ChunkIndex:     c.ChunkIndex,
		FilePath:       c.FilePath,
		FileHash:       c.FileHash,
		ChunkHash:      c.ChunkHash,
		TotalPages:     totalPages,
		EmbeddingModel: model,
		CreatedAt:      c.CreatedAt,
	}
}

// SearchFilter restricts a vector search to a set of documents.
// An empty filter searches the whole collection.
type SearchFilter struct {
	DocIDs []string
}

// IsEmpty reports whether the filter matches everything.
func (f SearchFilter) IsEmpty() bool {
	return len(f.DocIDs) == 0
}

// Matches reports whether a document passes the filter.
func (f SearchFilter) Matches(docID string) bool {
	if f.IsEmpty() {
		return true
	}
	for _, id := range f.DocIDs {
		if id == docID {
			return true
		}
	}
	return false
}

// SearchHit is one ranked result of a vector search.
type SearchHit struct {
	PointID uint64  `json:"point_id"`
	Content string  `json:"content"`
	DocID   string  `json:"doc_id"`
	Page    int     `json:"page"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`

	// Metadata carries the full stored payload.
	Metadata Payload `json:"metadata"`
}

// HitFromPoint builds a search hit from a stored point and its score.
func HitFromPoint(p Point, score float64) SearchHit {
	return SearchHit{
		PointID:  p.ID,
		Content:  p.Payload.Content,
		DocID:    p.Payload.DocID,
		Page:     p.Payload.Page,
		ChunkID:  p.Payload.ChunkID,
		Score:    score,
		Metadata: p.Payload,
	}
}

// CollectionInfo describes the state of a vector store collection.
type CollectionInfo struct {
	Name         string `json:"name"`
	PointsCount  int    `json:"points_count"`
	VectorsCount int    `json:"vectors_count"`
	Dimension    int    `json:"dimension"`
	Distance     string `json:"distance"`
	Status       string `json:"status"`
}

// CollectionName derives the collection name from an embedding model identifier,
// so each embedding configuration gets its own collection.
// "BAAI/bge-m3" becomes "documents_baai_bge_m3".
func CollectionName(model string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_", ":", "_")
	return collectionPrefix + strings.ToLower(r.Replace(model))
}

// IsCollectionName reports whether name was produced by CollectionName.
func IsCollectionName(name string) bool {
	return strings.HasPrefix(name, collectionPrefix)
}
