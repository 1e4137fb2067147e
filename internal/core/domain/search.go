package domain

import (
	"fmt"
	"strings"
)

// Filterable chunk metadata fields.
const (
	FieldDocumentID       = "document_id"
	FieldApplicationRef   = "application_ref"
	FieldDocumentType     = "document_type"
	FieldSourceFilename   = "source_filename"
	FieldExtractionMethod = "extraction_method"
)

var filterFields = map[string]bool{
	FieldDocumentID:       true,
	FieldApplicationRef:   true,
	FieldDocumentType:     true,
	FieldSourceFilename:   true,
	FieldExtractionMethod: true,
}

// Filter restricts a similarity query on one metadata field.
// A single value is an equality match, several values a membership match.
// Multiple filters are combined with AND.
type Filter struct {
	Field  string
	Values []string
}

// Eq builds an equality filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Values: []string{value}}
}

// In builds a membership filter.
func In(field string, values ...string) Filter {
	return Filter{Field: field, Values: values}
}

// Validate checks the field is filterable and at least one value is given.
func (f Filter) Validate() error {
	if !filterFields[f.Field] {
		return fmt.Errorf("%w: unknown filter field %q", ErrInvalidInput, f.Field)
	}
	if len(f.Values) == 0 {
		return fmt.Errorf("%w: filter %q has no values", ErrInvalidInput, f.Field)
	}
	return nil
}

// Matches reports whether the chunk satisfies the filter.
func (f Filter) Matches(c *Chunk) bool {
	var v string
	switch f.Field {
	case FieldDocumentID:
		v = c.DocumentID
	case FieldApplicationRef:
		v = c.ApplicationRef
	case FieldDocumentType:
		v = c.DocumentType
	case FieldSourceFilename:
		v = c.SourceFilename
	case FieldExtractionMethod:
		v = string(c.ExtractionMethod)
	default:
		return false
	}
	for _, want := range f.Values {
		if v == want {
			return true
		}
	}
	return false
}

// MatchAll reports whether the chunk satisfies every filter.
func MatchAll(filters []Filter, c *Chunk) bool {
	for _, f := range filters {
		if !f.Matches(c) {
			return false
		}
	}
	return true
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// ApplicationRef restricts results to one application when set.
	ApplicationRef string

	// DocumentTypes restricts results to the given types when set.
	DocumentTypes []string

	// MaxResults is the maximum number of results.
	MaxResults int
}

// Filters turns the options into store filters.
func (o SearchOptions) Filters() []Filter {
	var filters []Filter
	if ref := strings.TrimSpace(o.ApplicationRef); ref != "" {
		filters = append(filters, Eq(FieldApplicationRef, ref))
	}
	if len(o.DocumentTypes) > 0 {
		filters = append(filters, In(FieldDocumentType, o.DocumentTypes...))
	}
	return filters
}

// SearchResult is a single scored chunk.
type SearchResult struct {
	// Chunk is the matched chunk with full metadata. Embedding is not populated.
	Chunk Chunk

	// Score is the relevance score in (0, 1]; higher is better.
	Score float64

	// Distance is the raw cosine distance.
	Distance float64
}

// RelevanceScore converts a distance into a bounded, higher-is-better score.
// Zero distance scores 1 and the score tends to 0 as distance grows.
func RelevanceScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}
