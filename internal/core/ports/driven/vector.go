package driven

import (
	"context"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// DocumentRegistry is the exact-match catalogue of ingested documents.
type DocumentRegistry interface {
	// Lookup returns a document by ID, or domain.ErrDocumentNotFound.
	Lookup(ctx context.Context, documentID string) (*domain.Document, error)

	// ListByApplication returns every document owned by ref.
	ListByApplication(ctx context.Context, ref string) ([]domain.Document, error)
}

// ChunkIndex is the similarity-searchable collection of chunks.
type ChunkIndex interface {
	// Query returns up to k chunks nearest to embedding that satisfy every
	// filter, ordered by descending relevance score.
	Query(ctx context.Context, embedding []float32, filters []domain.Filter, k int) ([]domain.SearchResult, error)

	// Chunks returns a document's chunks in index order.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// VectorStore owns persisted documents and chunks.
type VectorStore interface {
	DocumentRegistry
	ChunkIndex

	// UpsertDocument stores the document and replaces its chunks atomically.
	// Readers see either the full new state or the previous one.
	UpsertDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
