package mcp

import (
	"github.com/custodia-labs/docket/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ingest runs the ingestion pipeline.
	Ingest driving.IngestService

	// Search provides similarity search.
	Search driving.SearchService

	// Document reads stored documents.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	switch {
	case p.Ingest == nil:
		return ErrMissingIngestService
	case p.Search == nil:
		return ErrMissingSearchService
	case p.Document == nil:
		return ErrMissingDocumentService
	}
	return nil
}
