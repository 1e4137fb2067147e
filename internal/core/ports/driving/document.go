package driving

import (
	"context"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// DocumentService exposes ingested documents.
type DocumentService interface {
	// GetText reconstructs the full extracted text from the document's chunks.
	GetText(ctx context.Context, documentID string) (string, error)

	// ListDocuments returns summaries of every document owned by ref.
	ListDocuments(ctx context.Context, ref string) ([]domain.DocumentSummary, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, documentID string) error
}
