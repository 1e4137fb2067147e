package driven

import "github.com/custodia-labs/docket/internal/core/domain"

// Chunker splits extracted pages into ordered chunks.
//
// Returned chunks carry Index, TotalChunks, PageNumbers, Text, Overlap,
// CharCount and WordCount. Identity and document metadata are filled by
// the caller. Empty input yields no chunks.
type Chunker interface {
	Chunk(pages []domain.PageResult, maxChars, overlapChars int) []domain.Chunk
}
