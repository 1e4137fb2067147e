package domain

import "errors"

// Domain errors represent ingestion and retrieval failures.
// These are distinct from infrastructure errors, which adapters wrap.
var (
	// ErrFileNotFound indicates the input file does not exist or is unreadable.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFileType indicates the file is neither a PDF nor a supported image.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtractionFailed indicates the PDF or OCR engine failed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoContent indicates no characters could be extracted from any page.
	ErrNoContent = errors.New("no extractable content")

	// ErrNoChunks indicates chunking produced nothing to embed.
	ErrNoChunks = errors.New("no chunks produced")

	// ErrInvalidInput indicates malformed or invalid input,
	// including empty text passed to the embedding service.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDocumentNotFound indicates an unknown document identifier.
	// This is an expected outcome, not an exceptional condition.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAlreadyIngested indicates identical content is already registered
	// for the same application. It is not a failure.
	ErrAlreadyIngested = errors.New("already ingested")
)

// ErrorKind names an error in the taxonomy.
type ErrorKind string

// Error kinds.
const (
	KindFileNotFound        ErrorKind = "FileNotFound"
	KindUnsupportedFileType ErrorKind = "UnsupportedFileType"
	KindExtractionFailed    ErrorKind = "ExtractionFailed"
	KindNoContent           ErrorKind = "NoContent"
	KindNoChunks            ErrorKind = "NoChunks"
	KindInvalidInput        ErrorKind = "InvalidInput"
	KindDocumentNotFound    ErrorKind = "DocumentNotFound"
	KindAlreadyIngested     ErrorKind = "AlreadyIngested"
	KindInternal            ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrFileNotFound, KindFileNotFound},
	{ErrUnsupportedFileType, KindUnsupportedFileType},
	{ErrExtractionFailed, KindExtractionFailed},
	{ErrNoContent, KindNoContent},
	{ErrNoChunks, KindNoChunks},
	{ErrInvalidInput, KindInvalidInput},
	{ErrDocumentNotFound, KindDocumentNotFound},
	{ErrAlreadyIngested, KindAlreadyIngested},
}

// KindOf returns the taxonomy kind of err, or KindInternal when err wraps
// none of the domain errors. A nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
