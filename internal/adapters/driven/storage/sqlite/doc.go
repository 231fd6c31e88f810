// Package sqlite implements driven.VectorStore on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Vectors are stored as little-endian float32 blobs next to their JSON payload
// and searched by brute-force cosine similarity.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Besides points, the store keeps a fingerprints table
// (chunk_hash -> point id) that is written in the same transaction as the points,
// so the deduplication set can be loaded without decoding every payload.
//
// # Data Location
//
// By default, the database is stored at ~/.ragpipe/data/vectors.db
//
// # Thread Safety
//
// The database is opened lazily on first use, at most once per successful open.
// All operations are safe for concurrent use; SQLite in WAL mode lets searches
// run while an ingestion transaction is writing.
package sqlite
