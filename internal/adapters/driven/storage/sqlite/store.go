package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragpipe/internal/adapters/driven/storage"
	"github.com/custodia-labs/ragpipe/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// DBFile is the database file name inside the data directory.
const DBFile = "vectors.db"

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is a SQLite-backed collection of points.
type VectorStore struct {
	dataDir    string
	collection string

	mu     sync.Mutex
	db     *sql.DB
	opened bool
}

// NewVectorStore creates a store for the named collection.
// No file is touched until the first operation.
// If dataDir is empty, defaults to ~/.ragpipe/data.
func NewVectorStore(dataDir, collection string) *VectorStore {
	return &VectorStore{dataDir: dataDir, collection: collection}
}

// Path returns the database file path.
func (s *VectorStore) Path() string {
	dir, err := s.resolveDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DBFile)
}

// Collection returns the collection name.
func (s *VectorStore) Collection() string {
	return s.collection
}

func (s *VectorStore) resolveDir() (string, error) {
	if s.dataDir != "" {
		return s.dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ragpipe", "data"), nil
}

// handle opens the database on first use. A failed open is retried on the next call.
func (s *VectorStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return s.db, nil
	}

	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	s.db = db
	s.opened = true
	return db, nil
}

func (s *VectorStore) open() (*sql.DB, error) {
	dataDir, err := s.resolveDir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// WAL lets searches read while ingestion writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Debug("sqlite: opened %s (collection %s)", dbPath, s.collection)
	return db, nil
}

// migrate runs all pending migrations. Each up file records its own version.
func migrate(db *sql.DB, fsys fs.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_vectors.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database. A later operation reopens it.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.db.Close()
}

// Ping opens the database if needed and checks the connection.
func (s *VectorStore) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

// ==================== Collection ====================

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dimension returns the collection dimension, or ErrNotFound when absent.
func (s *VectorStore) dimension(ctx context.Context, q queryer) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, "SELECT dimension FROM collections WHERE name = ?", s.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("collection %s: %w", s.collection, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection: %w", err)
	}
	return dim, nil
}

// EnsureCollection creates the collection with the given dimension if absent.
func (s *VectorStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, dimension)
	}
	db, err := s.handle()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, distance) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, s.collection, dimension, domain.DistanceCosine)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	existing, err := s.dimension(ctx, db)
	if err != nil {
		return err
	}
	if existing != dimension {
		return fmt.Errorf("%w: collection %s has %d, got %d",
			domain.ErrDimensionMismatch, s.collection, existing, dimension)
	}
	return nil
}

// Clear drops every point and fingerprint and recreates the collection
// with the same dimension and metric. A missing collection is left absent.
func (s *VectorStore) Clear(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var dim int
	var distance string
	err = tx.QueryRowContext(ctx, "SELECT dimension, distance FROM collections WHERE name = ?", s.collection).
		Scan(&dim, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM fingerprints WHERE collection = ?",
		"DELETE FROM points WHERE collection = ?",
		"DELETE FROM collections WHERE name = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, s.collection); err != nil {
			return fmt.Errorf("clearing collection: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO collections (name, dimension, distance) VALUES (?, ?, ?)",
		s.collection, dim, distance); err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Info describes the collection.
func (s *VectorStore) Info(ctx context.Context) (*domain.CollectionInfo, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	info := domain.CollectionInfo{Name: s.collection}
	err = db.QueryRowContext(ctx, "SELECT dimension, distance FROM collections WHERE name = ?", s.collection).
		Scan(&info.Dimension, &info.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", s.collection, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points WHERE collection = ?", s.collection).
		Scan(&info.PointsCount); err != nil {
		return nil, fmt.Errorf("counting points: %w", err)
	}
	info.VectorsCount = info.PointsCount
	info.Status = domain.CollectionStatusGreen
	if info.PointsCount == 0 {
		info.Status = domain.CollectionStatusEmpty
	}
	return &info, nil
}

// ==================== Points ====================

// Upsert writes points and their fingerprints in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	dim, err := s.dimension(ctx, tx)
	if err != nil {
		return err
	}

	pointStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, doc_id, chunk_hash, vector, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			doc_id = excluded.doc_id,
			chunk_hash = excluded.chunk_hash,
			vector = excluded.vector,
			payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer pointStmt.Close()

	unmarkStmt, err := tx.PrepareContext(ctx,
		"DELETE FROM fingerprints WHERE collection = ? AND point_id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer unmarkStmt.Close()

	markStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fingerprints (collection, chunk_hash, point_id) VALUES (?, ?, ?)
		ON CONFLICT(collection, chunk_hash) DO UPDATE SET point_id = excluded.point_id
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer markStmt.Close()

	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %d has %d, want %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), dim)
		}
		payloadJSON, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}

		id := int64(p.ID) //nolint:gosec // ids are masked to 63 bits
		if _, err := pointStmt.ExecContext(ctx, s.collection, id, p.Payload.DocID,
			p.Payload.ChunkHash, storage.EncodeVector(p.Vector), string(payloadJSON)); err != nil {
			return fmt.Errorf("saving point %d: %w", p.ID, err)
		}
		if _, err := unmarkStmt.ExecContext(ctx, s.collection, id); err != nil {
			return fmt.Errorf("saving fingerprint: %w", err)
		}
		if p.Payload.ChunkHash == "" {
			continue
		}
		if _, err := markStmt.ExecContext(ctx, s.collection, p.Payload.ChunkHash, id); err != nil {
			return fmt.Errorf("saving fingerprint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search ranks every point passing the filter by cosine similarity.
func (s *VectorStore) Search(
	ctx context.Context, vector []float32, limit int, filter domain.SearchFilter,
) ([]domain.SearchHit, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	dim, err := s.dimension(ctx, db)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.SearchHit{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", domain.ErrDimensionMismatch, len(vector), dim)
	}

	query := "SELECT id, vector, payload FROM points WHERE collection = ?"
	args := []any{s.collection}
	switch len(filter.DocIDs) {
	case 0:
	case 1:
		query += " AND doc_id = ?"
		args = append(args, filter.DocIDs[0])
	default:
		query += " AND doc_id IN (?" + strings.Repeat(", ?", len(filter.DocIDs)-1) + ")"
		for _, id := range filter.DocIDs {
			args = append(args, id)
		}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.HitFromPoint(p, storage.Cosine(vector, p.Vector)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}

	if hits == nil {
		return []domain.SearchHit{}, nil
	}
	return storage.Rank(hits, limit), nil
}

// ListDocuments scans stored payloads and groups them by doc_id.
func (s *VectorStore) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT payload FROM points WHERE collection = ?", s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying payloads: %w", err)
	}
	defer rows.Close()

	agg := storage.NewDocumentAggregator()
	for rows.Next() {
		var payloadJSON string
		if err := rows.Scan(&payloadJSON); err != nil {
			return nil, fmt.Errorf("scanning payload: %w", err)
		}
		var payload domain.Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("unmarshaling payload: %w", err)
		}
		agg.Add(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payloads: %w", err)
	}

	return agg.Documents(), nil
}

// DeleteDocument removes a document's points and fingerprints.
func (s *VectorStore) DeleteDocument(ctx context.Context, docID string) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM fingerprints WHERE collection = ? AND point_id IN (
			SELECT id FROM points WHERE collection = ? AND doc_id = ?
		)
	`, s.collection, s.collection, docID); err != nil {
		return 0, fmt.Errorf("deleting fingerprints: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM points WHERE collection = ? AND doc_id = ?", s.collection, docID)
	if err != nil {
		return 0, fmt.Errorf("deleting points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(n), nil
}

// ChunkHashes reads the fingerprints table.
func (s *VectorStore) ChunkHashes(ctx context.Context) ([]string, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT chunk_hash FROM fingerprints WHERE collection = ?", s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	defer rows.Close()

	hashes := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fingerprints: %w", err)
	}
	return hashes, nil
}

// ==================== Helpers ====================

func scanPoint(rows *sql.Rows) (domain.Point, error) {
	var id int64
	var vectorBlob []byte
	var payloadJSON string
	if err := rows.Scan(&id, &vectorBlob, &payloadJSON); err != nil {
		return domain.Point{}, fmt.Errorf("scanning point: %w", err)
	}

	var payload domain.Payload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return domain.Point{}, fmt.Errorf("unmarshaling payload of point %d: %w", id, err)
	}

	return domain.Point{
		ID:      uint64(id), //nolint:gosec // stored ids are non-negative
		Vector:  storage.DecodeVector(vectorBlob),
		Payload: payload,
	}, nil
}
