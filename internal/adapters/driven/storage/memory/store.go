// Package memory provides in-memory implementations of driven ports.
// The vector store suits tests and throwaway sessions; nothing is persisted.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docket/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// A single lock guards documents and chunks together, so an upsert or
// delete is never observed half done.
type VectorStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// Lookup retrieves a document by ID.
func (s *VectorStore) Lookup(_ context.Context, documentID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &doc, nil
}

// ListByApplication returns every document owned by ref, oldest first.
func (s *VectorStore) ListByApplication(_ context.Context, ref string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.ApplicationRef == ref {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].IngestedAt.Before(docs[j].IngestedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// UpsertDocument stores the document and replaces its chunks.
func (s *VectorStore) UpsertDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Index < stored[j].Index })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	s.chunks[doc.ID] = stored
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *VectorStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.documents, documentID)
	delete(s.chunks, documentID)
	return nil
}

// Chunks returns a document's chunks in index order.
func (s *VectorStore) Chunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.chunks[documentID]
	out := make([]domain.Chunk, len(stored))
	copy(out, stored)
	return out, nil
}

// Query scans every chunk that passes the filters and keeps the k nearest.
func (s *VectorStore) Query(
	ctx context.Context, embedding []float32, filters []domain.Filter, k int,
) ([]domain.SearchResult, error) {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	if k <= 0 {
		return nil, nil
	}

	q := ranking.NewQuery(embedding)
	top := ranking.NewTopK(k)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range chunks {
			c := &chunks[i]
			if !domain.MatchAll(filters, c) {
				continue
			}
			top.Add(*c, q.Distance(c.Embedding))
		}
	}
	return top.Results(), nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}
