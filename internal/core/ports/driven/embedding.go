// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations must be deterministic for a given model: identical text
// yields identical vectors regardless of how it was batched. Empty or
// whitespace-only text fails with domain.ErrInvalidInput, and text over the
// model's budget is truncated rather than rejected.
//
// Implementations include:
//   - local: built-in feature hashing model (default)
//   - Ollama (all-minilm)
//   - OpenAI (text-embedding-3-small at 384 dimensions)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts batchSize at a time and returns vectors in input order.
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error)

	// Dimensions returns the embedding vector size (384).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
