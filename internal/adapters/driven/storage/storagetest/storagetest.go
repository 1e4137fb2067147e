// Package storagetest holds behaviour tests shared by every VectorStore
// backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) driven.VectorStore

// Run exercises the VectorStore contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s driven.VectorStore)
	}{
		{"UpsertAndLookup", testUpsertAndLookup},
		{"LookupMissing", testLookupMissing},
		{"UpsertReplacesChunks", testUpsertReplacesChunks},
		{"ListByApplication", testListByApplication},
		{"QueryRanksByDistance", testQueryRanksByDistance},
		{"QueryFilters", testQueryFilters},
		{"QueryRejectsUnknownField", testQueryRejectsUnknownField},
		{"DeleteCascades", testDeleteCascades},
		{"DeleteMissing", testDeleteMissing},
		{"ConcurrentUpserts", testConcurrentUpserts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer func() { assert.NoError(t, s.Close()) }()
			tt.fn(t, s)
		})
	}
}

// Fixture builds a document with n chunks whose embeddings are unit
// vectors along axis (i + offset) mod dims.
func Fixture(id, app, docType string, n, offset int) (*domain.Document, []domain.Chunk) {
	doc := &domain.Document{
		ID:               id,
		SourcePath:       "/data/" + id + ".pdf",
		SourceFilename:   id + ".pdf",
		ApplicationRef:   app,
		DocumentType:     docType,
		FileHash:         "hash-" + id,
		ChunkCount:       n,
		ExtractionMethod: domain.MethodTextLayer,
		ImageRatio:       0.1,
		IngestedAt:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		vec := make([]float32, domain.EmbeddingDimensions)
		vec[(i+offset)%domain.EmbeddingDimensions] = 1
		text := fmt.Sprintf("chunk %d of %s", i, id)
		chunks[i] = domain.Chunk{
			ID:               fmt.Sprintf("%s-c%d", id, i),
			DocumentID:       id,
			ApplicationRef:   app,
			SourceFilename:   doc.SourceFilename,
			DocumentType:     docType,
			ExtractionMethod: domain.MethodTextLayer,
			Index:            i,
			TotalChunks:      n,
			PageNumbers:      []int{i + 1, i + 2},
			DominantPage:     i + 1,
			Text:             text,
			CharCount:        len(text),
			WordCount:        4,
			Embedding:        vec,
		}
	}
	return doc, chunks
}

func axis(i int) []float32 {
	vec := make([]float32, domain.EmbeddingDimensions)
	vec[i] = 1
	return vec
}

func testUpsertAndLookup(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	doc, chunks := Fixture("d1", "APP/1", "planning_statement", 3, 0)
	require.NoError(t, s.UpsertDocument(ctx, doc, chunks))

	got, err := s.Lookup(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, doc.SourceFilename, got.SourceFilename)
	assert.Equal(t, doc.ApplicationRef, got.ApplicationRef)
	assert.Equal(t, doc.FileHash, got.FileHash)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, domain.MethodTextLayer, got.ExtractionMethod)
	assert.InDelta(t, 0.1, got.ImageRatio, 1e-9)
	assert.True(t, doc.IngestedAt.Equal(got.IngestedAt))

	stored, err := s.Chunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, c := range stored {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, chunks[i].Text, c.Text)
		assert.Equal(t, chunks[i].PageNumbers, c.PageNumbers)
		assert.Equal(t, chunks[i].DominantPage, c.DominantPage)
	}
}

func testLookupMissing(t *testing.T, s driven.VectorStore) {
	_, err := s.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func testUpsertReplacesChunks(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	doc, chunks := Fixture("d1", "APP/1", "other", 4, 0)
	require.NoError(t, s.UpsertDocument(ctx, doc, chunks))

	doc2, chunks2 := Fixture("d1", "APP/1", "other", 2, 10)
	require.NoError(t, s.UpsertDocument(ctx, doc2, chunks2))

	stored, err := s.Chunks(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	got, err := s.Lookup(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ChunkCount)
}

func testListByApplication(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		doc, chunks := Fixture(id, "APP/1", "other", 1, 0)
		require.NoError(t, s.UpsertDocument(ctx, doc, chunks))
	}
	doc, chunks := Fixture("c", "APP/2", "other", 1, 0)
	require.NoError(t, s.UpsertDocument(ctx, doc, chunks))

	docs, err := s.ListByApplication(ctx, "APP/1")
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	docs, err = s.ListByApplication(ctx, "APP/404")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testQueryRanksByDistance(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	doc, chunks := Fixture("d1", "APP/1", "other", 5, 0)
	require.NoError(t, s.UpsertDocument(ctx, doc, chunks))

	results, err := s.Query(ctx, axis(2), nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Chunk.Index)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, doc.SourceFilename, results[0].Chunk.SourceFilename)
	assert.Equal(t, []int{3, 4}, results[0].Chunk.PageNumbers)
}

func testQueryFilters(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	d1, c1 := Fixture("d1", "APP/1", "planning_statement", 2, 0)
	d2, c2 := Fixture("d2", "APP/1", "drawing", 2, 0)
	d3, c3 := Fixture("d3", "APP/2", "planning_statement", 2, 0)
	require.NoError(t, s.UpsertDocument(ctx, d1, c1))
	require.NoError(t, s.UpsertDocument(ctx, d2, c2))
	require.NoError(t, s.UpsertDocument(ctx, d3, c3))

	results, err := s.Query(ctx, axis(0), []domain.Filter{
		domain.Eq(domain.FieldApplicationRef, "APP/1"),
	}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, "APP/1", r.Chunk.ApplicationRef)
	}

	results, err = s.Query(ctx, axis(0), []domain.Filter{
		domain.Eq(domain.FieldApplicationRef, "APP/1"),
		domain.In(domain.FieldDocumentType, "planning_statement", "heritage_statement"),
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "d1", r.Chunk.DocumentID)
	}

	results, err = s.Query(ctx, axis(0), []domain.Filter{
		domain.Eq(domain.FieldApplicationRef, "APP/404"),
	}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testQueryRejectsUnknownField(t *testing.T, s driven.VectorStore) {
	_, err := s.Query(context.Background(), axis(0), []domain.Filter{domain.Eq("text", "x")}, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testDeleteCascades(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	doc, chunks := Fixture("d1", "APP/1", "other", 3, 0)
	require.NoError(t, s.UpsertDocument(ctx, doc, chunks))

	require.NoError(t, s.DeleteDocument(ctx, "d1"))

	_, err := s.Lookup(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	stored, err := s.Chunks(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, stored)
	results, err := s.Query(ctx, axis(0), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testDeleteMissing(t *testing.T, s driven.VectorStore) {
	err := s.DeleteDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func testConcurrentUpserts(t *testing.T, s driven.VectorStore) {
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, chunks := Fixture(fmt.Sprintf("d%d", i), "APP/1", "other", 3, i)
			errs <- s.UpsertDocument(ctx, doc, chunks)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	docs, err := s.ListByApplication(ctx, "APP/1")
	require.NoError(t, err)
	assert.Len(t, docs, 8)
}
