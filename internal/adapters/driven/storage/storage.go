// Package storage holds the vector math and aggregation shared by the
// vector store adapters in its subpackages.
package storage

import (
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// Cosine returns the cosine similarity of two equal-length vectors.
// A zero vector scores 0 against everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank sorts hits by descending score, breaking ties by point id, and
// keeps at most limit of them. A non-positive limit keeps none.
func Rank(hits []domain.SearchHit, limit int) []domain.SearchHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PointID < hits[j].PointID
	})
	if limit < 0 {
		limit = 0
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// DocumentAggregator folds payloads into per-document summaries.
type DocumentAggregator struct {
	docs map[string]*docAgg
}

type docAgg struct {
	info  domain.DocumentInfo
	pages map[int]struct{}
}

// NewDocumentAggregator creates an empty aggregator.
func NewDocumentAggregator() *DocumentAggregator {
	return &DocumentAggregator{docs: make(map[string]*docAgg)}
}

// Add counts one stored payload.
func (a *DocumentAggregator) Add(p domain.Payload) {
	d, ok := a.docs[p.DocID]
	if !ok {
		d = &docAgg{
			info:  domain.DocumentInfo{DocID: p.DocID, FilePath: p.FilePath, CreatedAt: p.CreatedAt},
			pages: make(map[int]struct{}),
		}
		a.docs[p.DocID] = d
	}
	d.info.ChunksCount++
	d.pages[p.Page] = struct{}{}
	if d.info.FilePath == "" {
		d.info.FilePath = p.FilePath
	}
	if earlier(p.CreatedAt, d.info.CreatedAt) {
		d.info.CreatedAt = p.CreatedAt
	}
}

// Documents returns the summaries sorted by doc_id.
func (a *DocumentAggregator) Documents() []domain.DocumentInfo {
	out := make([]domain.DocumentInfo, 0, len(a.docs))
	for _, d := range a.docs {
		pages := make([]int, 0, len(d.pages))
		for p := range d.pages {
			pages = append(pages, p)
		}
		d.info.PagesCount = len(pages)
		d.info.PagesRange = domain.PagesRange(pages)
		out = append(out, d.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

func earlier(t, than time.Time) bool {
	if t.IsZero() {
		return false
	}
	return than.IsZero() || t.Before(than)
}

// EncodeVector packs a vector as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks bytes written by EncodeVector.
func DecodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
