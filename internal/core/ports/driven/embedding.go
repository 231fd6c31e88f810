package driven

import "context"

// EmbeddingService turns text into dense vectors. Ingestion embeds chunks and
// retrieval embeds the query, so both must use the same model: the vector
// store collection is named after ModelName and sized by Dimensions.
type EmbeddingService interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the configured vector size. Vectors of another size are
	// rejected with domain.ErrDimensionMismatch.
	Dimensions() int

	// ModelName identifies the model, e.g. "bge-m3".
	ModelName() string

	// Ping reports whether the provider is reachable.
	Ping(ctx context.Context) error

	// Close releases idle connections.
	Close() error
}
