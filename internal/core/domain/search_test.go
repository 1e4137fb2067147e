package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Validate(t *testing.T) {
	assert.NoError(t, Eq(FieldApplicationRef, "A").Validate())
	assert.NoError(t, In(FieldDocumentType, "a", "b").Validate())

	err := Eq("embedding", "x").Validate()
	assert.True(t, errors.Is(err, ErrInvalidInput))

	err = In(FieldDocumentType).Validate()
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestFilter_Matches(t *testing.T) {
	c := &Chunk{
		DocumentID:       "d1",
		ApplicationRef:   "A",
		DocumentType:     "transport_assessment",
		SourceFilename:   "ta.pdf",
		ExtractionMethod: MethodOCR,
	}

	assert.True(t, Eq(FieldApplicationRef, "A").Matches(c))
	assert.False(t, Eq(FieldApplicationRef, "B").Matches(c))
	assert.True(t, In(FieldDocumentType, "other", "transport_assessment").Matches(c))
	assert.True(t, Eq(FieldExtractionMethod, "ocr").Matches(c))
	assert.True(t, Eq(FieldSourceFilename, "ta.pdf").Matches(c))
	assert.True(t, Eq(FieldDocumentID, "d1").Matches(c))
	assert.False(t, Eq("unknown", "A").Matches(c))
}

func TestMatchAll(t *testing.T) {
	c := &Chunk{ApplicationRef: "A", DocumentType: "drawing"}

	assert.True(t, MatchAll(nil, c))
	assert.True(t, MatchAll([]Filter{Eq(FieldApplicationRef, "A"), In(FieldDocumentType, "drawing")}, c))
	assert.False(t, MatchAll([]Filter{Eq(FieldApplicationRef, "A"), In(FieldDocumentType, "other")}, c))
}

func TestSearchOptions_Filters(t *testing.T) {
	assert.Empty(t, SearchOptions{}.Filters())

	filters := SearchOptions{ApplicationRef: "A", DocumentTypes: []string{"x", "y"}}.Filters()
	assert.Equal(t, []Filter{Eq(FieldApplicationRef, "A"), In(FieldDocumentType, "x", "y")}, filters)

	assert.Equal(t, []Filter{Eq(FieldApplicationRef, "A")}, SearchOptions{ApplicationRef: " A\t"}.Filters())
	assert.Empty(t, SearchOptions{ApplicationRef: "   "}.Filters())
}

func TestRelevanceScore(t *testing.T) {
	assert.Equal(t, 1.0, RelevanceScore(0))
	assert.Equal(t, 1.0, RelevanceScore(-0.1))
	assert.InDelta(t, 0.5, RelevanceScore(1), 1e-9)
	assert.Greater(t, RelevanceScore(0.1), RelevanceScore(0.2))
	assert.Less(t, RelevanceScore(1e6), 1e-5)
}
