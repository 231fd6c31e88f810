// Package domain defines the core business entities for ragpipe.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded span of page text, the unit of retrieval
//   - Point: A chunk as persisted in the vector store (id, vector, payload)
//   - DocumentInfo: An aggregate view over the points of one document
//   - RAGResponse: The answer returned for a query, with citations and sources
//   - IngestionResult: The outcome of ingesting one file
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
