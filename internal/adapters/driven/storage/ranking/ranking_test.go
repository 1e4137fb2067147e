package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docket/internal/core/domain"
)

func TestQuery_Distance(t *testing.T) {
	q := NewQuery([]float32{1, 0})

	assert.InDelta(t, 0, q.Distance([]float32{2, 0}), 1e-6)
	assert.InDelta(t, 1, q.Distance([]float32{0, 1}), 1e-6)
	assert.InDelta(t, 2, q.Distance([]float32{-1, 0}), 1e-6)
	assert.Equal(t, 1.0, q.Distance([]float32{0, 0}))
	assert.Equal(t, 1.0, q.Distance([]float32{1, 0, 0}))
}

func TestTopK_KeepsBestInOrder(t *testing.T) {
	top := NewTopK(2)
	top.Add(domain.Chunk{DocumentID: "a", Index: 0}, 0.5)
	top.Add(domain.Chunk{DocumentID: "a", Index: 1}, 0.1)
	top.Add(domain.Chunk{DocumentID: "a", Index: 2}, 0.9)
	top.Add(domain.Chunk{DocumentID: "a", Index: 3}, 0.3)

	got := top.Results()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Chunk.Index)
	assert.Equal(t, 3, got[1].Chunk.Index)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.InDelta(t, 1/1.1, got[0].Score, 1e-9)
}

func TestTopK_TiesAreDeterministic(t *testing.T) {
	top := NewTopK(3)
	top.Add(domain.Chunk{DocumentID: "b", Index: 0}, 0.2)
	top.Add(domain.Chunk{DocumentID: "a", Index: 1}, 0.2)
	top.Add(domain.Chunk{DocumentID: "a", Index: 0}, 0.2)

	got := top.Results()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Chunk.DocumentID)
	assert.Equal(t, 0, got[0].Chunk.Index)
	assert.Equal(t, 1, got[1].Chunk.Index)
	assert.Equal(t, "b", got[2].Chunk.DocumentID)
}

func TestTopK_DropsEmbedding(t *testing.T) {
	top := NewTopK(1)
	top.Add(domain.Chunk{Embedding: []float32{1}}, 0)
	assert.Nil(t, top.Results()[0].Chunk.Embedding)
}

func TestTopK_ZeroK(t *testing.T) {
	top := NewTopK(0)
	top.Add(domain.Chunk{}, 0)
	assert.Empty(t, top.Results())
}
