package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/core/ports/driving"
	"github.com/custodia-labs/docket/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService reads and removes ingested documents.
type DocumentService struct {
	store     driven.VectorStore
	separator string
	logger    *zap.Logger
}

// NewDocumentService creates a new document service. separator is placed
// between chunk bodies when rebuilding text; empty gives an exact rebuild.
func NewDocumentService(store driven.VectorStore, separator string, log *zap.Logger) *DocumentService {
	return &DocumentService{
		store:     store,
		separator: separator,
		logger:    logger.OrNop(log),
	}
}

// GetText rebuilds the extracted text from the document's chunks.
func (s *DocumentService) GetText(ctx context.Context, documentID string) (string, error) {
	if strings.TrimSpace(documentID) == "" {
		return "", fmt.Errorf("%w: document_id is required", domain.ErrInvalidInput)
	}
	if _, err := s.store.Lookup(ctx, documentID); err != nil {
		return "", err
	}
	chunks, err := s.store.Chunks(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("loading chunks: %w", err)
	}
	return domain.JoinChunks(chunks, s.separator), nil
}

// ListDocuments returns summaries of every document owned by ref.
func (s *DocumentService) ListDocuments(ctx context.Context, ref string) ([]domain.DocumentSummary, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: application_ref is required", domain.ErrInvalidInput)
	}
	docs, err := s.store.ListByApplication(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	summaries := make([]domain.DocumentSummary, len(docs))
	for i, d := range docs {
		summaries[i] = d.Summary()
	}
	return summaries, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.store.Lookup(ctx, documentID)
}

// Delete removes a document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	logger.FromContext(ctx, s.logger).Info("document deleted", zap.String("document_id", documentID))
	return nil
}
