package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
	"github.com/custodia-labs/ragpipe/internal/hasher"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Ensure IngestionCoordinator implements the interface.
var _ driving.IngestionService = (*IngestionCoordinator)(nil)

// DefaultBatchSize is the number of points sent per upsert.
const DefaultBatchSize = 32

// IngestionCoordinator turns files into stored points. Every mutation of the
// collection goes through it so the dedup set stays consistent with the store.
// Ingestion is serialised; searches do not take the lock.
type IngestionCoordinator struct {
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	batchSize  int
	now        func() time.Time

	mu     sync.Mutex
	seen   *FingerprintSet
	loaded bool
}

// NewIngestionCoordinator creates a coordinator. A batchSize <= 0 selects DefaultBatchSize.
func NewIngestionCoordinator(
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	batchSize int,
) *IngestionCoordinator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IngestionCoordinator{
		extractors: extractors,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		batchSize:  batchSize,
		now:        time.Now,
		seen:       NewFingerprintSet(),
	}
}

// Supports reports whether a file type can be ingested.
func (c *IngestionCoordinator) Supports(path string) bool {
	return c.extractors.Supports(path)
}

// IngestDocument extracts, chunks, embeds and stores one file.
// Chunks whose fingerprint is already stored are skipped without an
// embedding call. Failures are reported in the result, never returned.
func (c *IngestionCoordinator) IngestDocument(ctx context.Context, path, docID string) domain.IngestionResult {
	if docID == "" {
		docID = hasher.Stem(path)
	}
	result := domain.IngestionResult{DocID: docID, FilePath: path}

	// Fingerprints include the path, so every spelling of a file must
	// resolve to the same one.
	abs, err := filepath.Abs(path)
	if err != nil {
		result.Error = fmt.Errorf("%w: %w", domain.ErrInvalidInput, err).Error()
		return result
	}
	path = abs
	result.FilePath = path

	c.mu.Lock()
	defer c.mu.Unlock()

	created, skipped, pages, err := c.ingest(ctx, path, docID)
	result.ChunksCreated = created
	result.ChunksSkipped = skipped
	result.PagesProcessed = pages
	if err != nil {
		logger.Warn("ingest %s: %v", path, err)
		result.Error = err.Error()
		return result
	}

	result.Success = true
	if created == 0 {
		logger.Debug("ingest %s: up to date (%d chunks skipped)", path, skipped)
	} else {
		logger.Info("ingest %s: %d chunks created, %d skipped, %d pages", path, created, skipped, pages)
	}
	return result
}

// ingest does the work of IngestDocument. Caller must hold c.mu.
func (c *IngestionCoordinator) ingest(ctx context.Context, path, docID string) (created, skipped, pages int, err error) {
	defer logger.Timed("ingest " + filepath.Base(path))()

	if !c.extractors.Supports(path) {
		return 0, 0, 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, filepath.Ext(path))
	}
	if err := c.prepare(ctx); err != nil {
		return 0, 0, 0, err
	}

	fileHash, err := hasher.FileHash(path)
	if err != nil {
		return 0, 0, 0, err
	}

	extracted, err := c.extractors.Extract(ctx, path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("extract: %w", err)
	}
	pages = len(extracted)

	chunks, err := c.chunker.Split(domain.ChunkSource{DocID: docID, FilePath: path, FileHash: fileHash}, extracted)
	if err != nil {
		return 0, 0, pages, fmt.Errorf("chunk: %w", err)
	}

	createdAt := c.now().UTC()
	pending := make([]domain.Chunk, 0, len(chunks))
	queued := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		fp := hasher.Fingerprint(chunk.Content, path, chunk.Page)
		if _, dup := queued[fp]; dup || c.seen.Contains(fp) {
			skipped++
			continue
		}
		queued[fp] = struct{}{}
		chunk.ChunkHash = fp
		chunk.CreatedAt = createdAt
		pending = append(pending, chunk)
	}

	totalPages := lastPage(extracted)
	stem := hasher.Stem(path)
	for start := 0; start < len(pending); start += c.batchSize {
		end := min(start+c.batchSize, len(pending))
		if err := c.storeBatch(ctx, stem, totalPages, pending[start:end]); err != nil {
			return created, skipped, pages, fmt.Errorf("batch %d-%d: %w", start+1, end, err)
		}
		created += end - start
	}

	return created, skipped, pages, nil
}

// storeBatch embeds and upserts a batch, then marks its fingerprints.
func (c *IngestionCoordinator) storeBatch(ctx context.Context, stem string, totalPages int, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: embed: got %d vectors for %d chunks", domain.ErrEmbeddingUnavailable, len(vectors), len(batch))
	}

	model := c.embedder.ModelName()
	points := make([]domain.Point, len(batch))
	hashes := make([]string, len(batch))
	for i, chunk := range batch {
		points[i] = domain.Point{
			ID:      hasher.PointID(stem, chunk.Page, chunk.ChunkIndex, chunk.ChunkHash),
			Vector:  vectors[i],
			Payload: domain.PayloadFromChunk(chunk, totalPages, model),
		}
		hashes[i] = chunk.ChunkHash
	}

	if err := c.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	c.seen.Add(hashes...)
	return nil
}

// prepare creates the collection and loads the dedup set on first use.
// A failed load is retried on the next call. Caller must hold c.mu.
func (c *IngestionCoordinator) prepare(ctx context.Context) error {
	if err := c.store.EnsureCollection(ctx, c.embedder.Dimensions()); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if c.loaded {
		return nil
	}

	hashes, err := c.store.ChunkHashes(ctx)
	if err != nil {
		return fmt.Errorf("load fingerprints: %w", err)
	}
	c.seen.Reset()
	c.seen.Add(hashes...)
	c.loaded = true
	logger.Debug("dedup set loaded: %d fingerprints", len(hashes))
	return nil
}

// IngestDirectory ingests every supported, non-hidden file under dir in
// lexical order. Per-file failures are counted in the stats and joined into
// the returned error; the sweep continues past them.
func (c *IngestionCoordinator) IngestDirectory(ctx context.Context, dir string) (*domain.IngestionStats, error) {
	files, err := c.collect(dir)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger.Info("ingest run %s: %d files under %s", runID, len(files), dir)

	stats := &domain.IngestionStats{}
	var errs []error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result := c.IngestDocument(ctx, path, "")
		stats.Add(result)
		if !result.Success {
			errs = append(errs, fmt.Errorf("%s: %s", path, result.Error))
		}
	}

	logger.Info("ingest run %s: %d processed, %d skipped, %d errors, %d chunks",
		runID, stats.Processed, stats.Skipped, stats.Errors, stats.TotalChunks)
	return stats, errors.Join(errs...)
}

// Rebuild clears the collection and the dedup set, then ingests dir.
func (c *IngestionCoordinator) Rebuild(ctx context.Context, dir string) (*domain.IngestionStats, error) {
	if _, err := c.collect(dir); err != nil {
		return nil, err
	}
	if err := c.Clear(ctx); err != nil {
		return nil, err
	}
	return c.IngestDirectory(ctx, dir)
}

// Clear empties the collection and forgets every fingerprint.
func (c *IngestionCoordinator) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	c.seen.Reset()
	c.loaded = true
	logger.Info("collection cleared")
	return nil
}

// DeleteDocument removes a document's points. The dedup set is reloaded
// from the store on the next ingestion so the document can be re-ingested.
func (c *IngestionCoordinator) DeleteDocument(ctx context.Context, docID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.store.DeleteDocument(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", docID, err)
	}
	if n > 0 {
		c.loaded = false
		logger.Info("deleted %d chunks of %s", n, docID)
	}
	return n, nil
}

// collect lists the supported files under dir.
func (c *IngestionCoordinator) collect(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && c.extractors.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// isHidden reports whether a file or directory name is hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// lastPage returns the highest page number, which is the document length
// when trailing pages are blank.
func lastPage(pages []domain.Page) int {
	last := 0
	for _, p := range pages {
		last = max(last, p.Number)
	}
	return last
}
