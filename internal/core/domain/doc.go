// Package domain defines the core business entities for docket.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested source file owned by one application reference
//   - Chunk: A bounded, embedded span of a document's text
//   - ExtractionResult: Per-page text produced by the extractor
//   - IngestOutcome: The terminal state of one ingestion call
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
