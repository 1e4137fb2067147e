// Package mcp exposes the ingestion and retrieval operations as MCP
// (Model Context Protocol) tools, over stdio or streamable HTTP.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// Errors returned when a required service is not provided.
var (
	ErrMissingIngestService   = errors.New("mcp: ingest service is required")
	ErrMissingSearchService   = errors.New("mcp: search service is required")
	ErrMissingDocumentService = errors.New("mcp: document service is required")
)

// ToolError is a failed tool call. Its text starts with the error kind so
// clients can branch on it without parsing the message.
type ToolError struct {
	Kind domain.ErrorKind
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// toolError classifies err for a tool response.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{Kind: domain.KindOf(err), Err: err}
}
