package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docket/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docket/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docket/internal/classifier"
	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
	"github.com/custodia-labs/docket/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// mockExtractor implements driven.TextExtractor with canned results.
type mockExtractor struct {
	kind       domain.FileKind
	ratio      float64
	result     *domain.ExtractionResult
	extractErr error
	ratioErr   error

	extractCalls atomic.Int32
}

func (m *mockExtractor) Detect(path string) (domain.FileKind, error) {
	if _, err := os.Stat(path); err != nil {
		return "", domain.ErrFileNotFound
	}
	if m.kind == "" {
		return "", domain.ErrUnsupportedFileType
	}
	return m.kind, nil
}

func (m *mockExtractor) ImageRatio(_ context.Context, _ string) (float64, error) {
	return m.ratio, m.ratioErr
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (*domain.ExtractionResult, error) {
	m.extractCalls.Add(1)
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return m.result, nil
}

// failingEmbedder wraps the local model and fails EmbedBatch.
type failingEmbedder struct {
	*local.EmbeddingService
	err error
}

func (f *failingEmbedder) EmbedBatch(_ context.Context, _ []string, _ int) ([][]float32, error) {
	return nil, f.err
}

// failingStore fails UpsertDocument.
type failingStore struct {
	*memory.VectorStore
}

func (f *failingStore) UpsertDocument(_ context.Context, _ *domain.Document, _ []domain.Chunk) error {
	return errors.New("disk full")
}

// --- Fixtures ---

func textPages(texts ...string) *domain.ExtractionResult {
	res := &domain.ExtractionResult{}
	for i, text := range texts {
		res.Pages = append(res.Pages, domain.PageResult{
			Number:    i + 1,
			Text:      text,
			CharCount: len([]rune(text)),
			Method:    domain.MethodTextLayer,
		})
	}
	return res
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type pipeline struct {
	ingest    *IngestService
	search    *SearchService
	documents *DocumentService
	store     *memory.VectorStore
	extractor *mockExtractor
}

func newPipeline(t *testing.T, ex *mockExtractor, cfg IngestConfig) *pipeline {
	t.Helper()
	return newPipelineWith(t, ex, cfg, nil, nil)
}

func newPipelineWith(
	t *testing.T, ex *mockExtractor, cfg IngestConfig, emb driven.EmbeddingService, store driven.VectorStore,
) *pipeline {
	t.Helper()
	mem := memory.NewVectorStore()
	if store == nil {
		store = mem
	}
	if emb == nil {
		emb = local.NewEmbeddingService(local.Config{})
	}
	cls, err := classifier.New()
	require.NoError(t, err)

	return &pipeline{
		ingest:    NewIngestService(ex, chunker.New(), emb, cls, store, cfg, nil),
		search:    NewSearchService(emb, store, nil),
		documents: NewDocumentService(store, "", nil),
		store:     mem,
		extractor: ex,
	}
}

func longText(sentence string, n int) string {
	return strings.Repeat(sentence+" ", n)
}
