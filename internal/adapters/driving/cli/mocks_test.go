package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// mockIngestService returns a success outcome unless the file name
// starts with "bad" or "skip".
type mockIngestService struct {
	mu       sync.Mutex
	requests []domain.IngestRequest
	inflight int
	peak     int
	delay    time.Duration
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestOutcome, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.inflight++
	m.peak = max(m.peak, m.inflight)
	m.mu.Unlock()

	time.Sleep(m.delay)

	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()

	name := filepath.Base(req.Path)
	out := &domain.IngestOutcome{SourceFilename: name, DocumentID: "doc-" + name}
	switch {
	case len(name) >= 3 && name[:3] == "bad":
		out.Status = domain.StatusError
		out.ErrorKind = domain.KindNoContent
		out.Message = "no extractable content"
		return out, domain.ErrNoContent
	case len(name) >= 4 && name[:4] == "skip":
		out.Status = domain.StatusSkipped
		out.Reason = domain.SkipReasonImageBased
		out.ImageRatio = 0.9
	default:
		out.Status = domain.StatusSuccess
		out.ChunksCreated = 3
		out.DocumentType = "other"
		out.ExtractionMethod = domain.MethodTextLayer
	}
	return out, nil
}

type mockSearchService struct {
	query string
	opts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.query, m.opts = query, opts
	if query == "nothing" {
		return []domain.SearchResult{}, nil
	}
	return []domain.SearchResult{{
		Chunk: domain.Chunk{
			ID:             "chunk-1",
			DocumentID:     "doc-1",
			ApplicationRef: "APP/1",
			SourceFilename: "Heritage_Statement.pdf",
			DocumentType:   "heritage_statement",
			PageNumbers:    []int{4, 5},
			Text:           "The listed   building\nretains its sash windows.",
		},
		Score: 0.8125,
	}}, nil
}

type mockDocumentService struct {
	deleted string
}

func (m *mockDocumentService) GetText(_ context.Context, id string) (string, error) {
	if id != "doc-1" {
		return "", domain.ErrDocumentNotFound
	}
	return "Full document text.", nil
}

func (m *mockDocumentService) ListDocuments(_ context.Context, ref string) ([]domain.DocumentSummary, error) {
	if ref != "APP/1" {
		return []domain.DocumentSummary{}, nil
	}
	return []domain.DocumentSummary{{
		ID:               "doc-1",
		SourceFilename:   "Test Document 1.pdf",
		ApplicationRef:   ref,
		DocumentType:     "planning_statement",
		ChunkCount:       7,
		ExtractionMethod: domain.MethodMixed,
		ContainsDrawings: true,
	}}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if id != "doc-1" {
		return nil, domain.ErrDocumentNotFound
	}
	return &domain.Document{
		ID:             "doc-1",
		SourceFilename: "Test Document 1.pdf",
		ApplicationRef: "APP/1",
		DocumentType:   "planning_statement",
		ChunkCount:     7,
		FileHash:       "abc123",
	}, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if id != "doc-1" {
		return fmt.Errorf("delete %s: %w", id, domain.ErrDocumentNotFound)
	}
	m.deleted = id
	return nil
}

type testServices struct {
	ingest   *mockIngestService
	search   *mockSearchService
	document *mockDocumentService
}

// setupTestServices installs mock services and returns a cleanup function
// that restores the previous ones and resets command flags.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ingest:   &mockIngestService{},
		search:   &mockSearchService{},
		document: &mockDocumentService{},
	}

	prev := services
	services = &Services{
		Ingest:     ts.ingest,
		Search:     ts.search,
		Document:   ts.document,
		Workers:    2,
		ServerAddr: "127.0.0.1:0",
	}

	return ts, func() {
		services = prev
		ingestApp, ingestType, ingestWorkers, ingestJSON = "", "", 0, false
		searchApp, searchTypes, searchLimit, searchJSON = "", nil, 10, false
		listApp, listJSON = "", false
		for _, c := range []*cobra.Command{ingestCmd, searchCmd, listCmd} {
			c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		}
		rootCmd.SetArgs(nil)
	}
}
