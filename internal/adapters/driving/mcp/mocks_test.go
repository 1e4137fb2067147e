package mcp

import (
	"context"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	outcome *domain.IngestOutcome
	err     error
	got     domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestOutcome, error) {
	m.got = req
	return m.outcome, m.err
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	query   string
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.query, m.opts = query, opts
	return m.results, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	text      string
	summaries []domain.DocumentSummary
	document  *domain.Document
	err       error
	lastRef   string
}

func (m *mockDocumentService) GetText(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}

func (m *mockDocumentService) ListDocuments(_ context.Context, ref string) ([]domain.DocumentSummary, error) {
	m.lastRef = ref
	return m.summaries, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func newTestServer(ingest *mockIngestService, search *mockSearchService, docs *mockDocumentService) *Server {
	if ingest == nil {
		ingest = &mockIngestService{}
	}
	if search == nil {
		search = &mockSearchService{}
	}
	if docs == nil {
		docs = &mockDocumentService{}
	}
	s, err := NewServer(&Ports{Ingest: ingest, Search: search, Document: docs}, nil)
	if err != nil {
		panic(err)
	}
	return s
}
