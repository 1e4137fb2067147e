package domain

import (
	"strings"
	"time"
)

// ExtractionMethod records where a page's (or a document's) text came from.
type ExtractionMethod string

// Extraction methods.
const (
	// MethodTextLayer is text read from the PDF's native text layer.
	MethodTextLayer ExtractionMethod = "text_layer"

	// MethodOCR is text recognised from a rasterised page.
	MethodOCR ExtractionMethod = "ocr"

	// MethodMixed is used for documents whose pages disagree.
	MethodMixed ExtractionMethod = "mixed"
)

// IsValid returns true if the method is recognised.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case MethodTextLayer, MethodOCR, MethodMixed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m ExtractionMethod) String() string {
	return string(m)
}

// DefaultDocumentType is the classification fallback.
const DefaultDocumentType = "other"

// Document is one ingested source file for one owning application.
// Documents are created once and never mutated in place.
type Document struct {
	// ID is derived from ApplicationRef and FileHash.
	ID string

	// SourcePath is the path the file was ingested from.
	SourcePath string

	// SourceFilename is the base name of SourcePath.
	SourceFilename string

	// ApplicationRef is the owning application or collection reference.
	ApplicationRef string

	// DocumentType is the classified or overridden type.
	DocumentType string

	// FileHash is the hex sha256 digest of the file bytes.
	FileHash string

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int

	// ExtractionMethod aggregates the per-page methods.
	ExtractionMethod ExtractionMethod

	// ContainsDrawings is set when the average image ratio crosses
	// the drawing threshold.
	ContainsDrawings bool

	// ImageRatio is the average image coverage across pages.
	ImageRatio float64

	// IngestedAt is when the document was stored (UTC).
	IngestedAt time.Time
}

// Chunk is a bounded span of a document's extracted text.
// It is the unit of embedding and retrieval.
type Chunk struct {
	// ID is derived from DocumentID, the dominant page and Index.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Denormalised document metadata, stored with every chunk so that
	// similarity queries can filter without a join.
	ApplicationRef   string
	SourceFilename   string
	DocumentType     string
	ExtractionMethod ExtractionMethod

	// Index is the 0-based ordinal position within the document.
	Index int

	// TotalChunks is the sibling count at creation time.
	TotalChunks int

	// PageNumbers is the ordered, deduplicated set of pages the chunk spans.
	PageNumbers []int

	// DominantPage is the page contributing the most characters.
	DominantPage int

	// Text is the chunk content, including the leading overlap.
	Text string

	// Overlap is the number of leading runes repeated from the previous chunk.
	Overlap int

	// CharCount is the rune count of Text.
	CharCount int

	// WordCount is the whitespace-delimited word count of Text.
	WordCount int

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// Body returns the chunk text without the overlap carried from the
// previous chunk.
func (c Chunk) Body() string {
	if c.Overlap <= 0 {
		return c.Text
	}
	runes := []rune(c.Text)
	if c.Overlap >= len(runes) {
		return ""
	}
	return string(runes[c.Overlap:])
}

// PageLabel renders PageNumbers as an ordered textual list ("1,2,3").
func (c Chunk) PageLabel() string {
	return FormatPages(c.PageNumbers)
}

// JoinChunks rebuilds document text from chunks already sorted by index.
// Overlaps are removed and bodies are joined with sep.
func JoinChunks(chunks []Chunk, sep string) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(c.Body())
	}
	return b.String()
}

// DocumentSummary is the listing view of a Document.
type DocumentSummary struct {
	ID               string           `json:"document_id"`
	SourceFilename   string           `json:"source_filename"`
	ApplicationRef   string           `json:"application_ref"`
	DocumentType     string           `json:"document_type"`
	ChunkCount       int              `json:"chunk_count"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	ContainsDrawings bool             `json:"contains_drawings"`
	IngestedAt       time.Time        `json:"ingested_at"`
}

// Summary returns the listing view of the document.
func (d Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:               d.ID,
		SourceFilename:   d.SourceFilename,
		ApplicationRef:   d.ApplicationRef,
		DocumentType:     d.DocumentType,
		ChunkCount:       d.ChunkCount,
		ExtractionMethod: d.ExtractionMethod,
		ContainsDrawings: d.ContainsDrawings,
		IngestedAt:       d.IngestedAt,
	}
}
