package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyQuery indicates a search was requested without query text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnsupportedFileType indicates no extractor handles the file extension.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrTooManyChunks indicates a single page would produce more chunks
	// than the chunker allows. Usually a sign of pathological input.
	ErrTooManyChunks = errors.New("too many chunks for page")

	// ErrDimensionMismatch indicates a vector does not match the
	// dimension the collection was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// Provider Errors.

	// ErrLLMUnavailable indicates the requested LLM backend is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or unreachable.
	// Neither ingestion nor search can run without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankerUnavailable indicates the reranker is not configured or unreachable.
	// Search falls back to vector ranking.
	ErrRerankerUnavailable = errors.New("reranker unavailable")

	// ErrVectorStoreUnavailable indicates the vector store cannot be opened or reached.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)
