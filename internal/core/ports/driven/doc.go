// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - TextExtractor: PDF and image text extraction with OCR fallback
//   - Chunker: Splits page text into chunks with page provenance
//   - EmbeddingService: Generates fixed-size vector embeddings
//   - VectorStore: Chunk index plus document registry
//   - Classifier: Assigns a document type from filename and content
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
