// Package ranking scores chunks against a query vector and keeps the
// best k. It is shared by the stores that search in process.
package ranking

import (
	"sort"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// Query holds a query vector with its magnitude computed once.
type Query struct {
	vec       search.Float32s
	magnitude float32
}

// NewQuery prepares a query vector.
func NewQuery(embedding []float32) Query {
	v := search.Float32s(embedding)
	return Query{vec: v, magnitude: v.Magnitude()}
}

// Distance returns the cosine distance between the query and v, in [0, 2].
// A zero vector on either side is treated as orthogonal.
func (q Query) Distance(v []float32) float64 {
	m := search.Float32s(v).Magnitude()
	if q.magnitude == 0 || m == 0 || len(v) != len(q.vec) {
		return 1
	}
	d := float64(q.vec.CosineDistanceWithMagnitude(v, q.magnitude, m))
	if d < 0 {
		d = 0
	}
	return d
}

// TopK collects the k nearest chunks.
type TopK struct {
	k       int
	results []domain.SearchResult
}

// NewTopK creates a collector for k results.
func NewTopK(k int) *TopK {
	return &TopK{k: k, results: make([]domain.SearchResult, 0, k+1)}
}

// Add offers a chunk at the given distance. The chunk's embedding is dropped.
func (t *TopK) Add(c domain.Chunk, distance float64) {
	if t.k <= 0 {
		return
	}
	c.Embedding = nil
	r := domain.SearchResult{Chunk: c, Score: domain.RelevanceScore(distance), Distance: distance}

	if len(t.results) == t.k && !less(r, t.results[len(t.results)-1]) {
		return
	}
	i := sort.Search(len(t.results), func(i int) bool { return less(r, t.results[i]) })
	t.results = append(t.results, domain.SearchResult{})
	copy(t.results[i+1:], t.results[i:])
	t.results[i] = r
	if len(t.results) > t.k {
		t.results = t.results[:t.k]
	}
}

// Results returns the collected results, best first.
func (t *TopK) Results() []domain.SearchResult {
	return t.results
}

// less orders by distance, then by document and chunk position so that
// ties resolve the same way on every backend.
func less(a, b domain.SearchResult) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Chunk.DocumentID != b.Chunk.DocumentID {
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	}
	return a.Chunk.Index < b.Chunk.Index
}
