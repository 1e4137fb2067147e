package domain

// IngestStatus is the terminal outcome of one ingestion call.
type IngestStatus string

// Ingestion outcomes.
const (
	// StatusSuccess means the document and its chunks were stored.
	StatusSuccess IngestStatus = "success"

	// StatusAlreadyIngested means identical content is already registered
	// for the same application reference. Nothing was written.
	StatusAlreadyIngested IngestStatus = "already_ingested"

	// StatusSkipped means the document was not extracted, for example
	// because it is mostly images.
	StatusSkipped IngestStatus = "skipped"

	// StatusError means a stage failed. ErrorKind says which.
	StatusError IngestStatus = "error"
)

// SkipReasonImageBased is reported when the image ratio exceeds the skip threshold.
const SkipReasonImageBased = "image_based"

// IngestRequest describes one file to ingest.
type IngestRequest struct {
	// Path is a readable local file.
	Path string

	// ApplicationRef owns the document. Required.
	ApplicationRef string

	// DocumentType overrides classification when non-empty.
	DocumentType string
}

// IngestOutcome reports what an ingestion call did.
type IngestOutcome struct {
	Status           IngestStatus     `json:"status"`
	DocumentID       string           `json:"document_id,omitempty"`
	SourceFilename   string           `json:"source_filename,omitempty"`
	ChunksCreated    int              `json:"chunks_created"`
	ExtractionMethod ExtractionMethod `json:"extraction_method,omitempty"`
	DocumentType     string           `json:"document_type,omitempty"`
	ContainsDrawings bool             `json:"contains_drawings"`
	ImageRatio       float64          `json:"image_ratio"`
	Reason           string           `json:"reason,omitempty"`
	ErrorKind        ErrorKind        `json:"error_kind,omitempty"`
	Message          string           `json:"message,omitempty"`

	// Warnings carries non-fatal quality signals (low OCR confidence,
	// truncated embedding input).
	Warnings []string `json:"warnings,omitempty"`
}
