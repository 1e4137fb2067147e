package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/logger"
)

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	Path           string `json:"path" jsonschema:"absolute path of a PDF or image file readable by the server"`
	ApplicationRef string `json:"application_ref" jsonschema:"application or collection reference that owns the document"`
	DocumentType   string `json:"document_type,omitempty" jsonschema:"document type to record instead of classifying"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	Status           string   `json:"status"`
	DocumentID       string   `json:"document_id,omitempty"`
	SourceFilename   string   `json:"source_filename,omitempty"`
	ChunksCreated    int      `json:"chunks_created"`
	ExtractionMethod string   `json:"extraction_method,omitempty"`
	DocumentType     string   `json:"document_type,omitempty"`
	ContainsDrawings bool     `json:"contains_drawings"`
	ImageRatio       float64  `json:"image_ratio"`
	Reason           string   `json:"reason,omitempty"`
	ErrorKind        string   `json:"error_kind,omitempty"`
	Message          string   `json:"message,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query          string   `json:"query" jsonschema:"natural language search query"`
	ApplicationRef string   `json:"application_ref,omitempty" jsonschema:"restrict results to one application"`
	DocumentTypes  []string `json:"document_types,omitempty" jsonschema:"restrict results to these document types"`
	MaxResults     int      `json:"max_results,omitempty" jsonschema:"maximum number of results (default 10, at most 100)"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID          string  `json:"chunk_id"`
	DocumentID       string  `json:"document_id"`
	ApplicationRef   string  `json:"application_ref"`
	SourceFilename   string  `json:"source_filename"`
	DocumentType     string  `json:"document_type"`
	ExtractionMethod string  `json:"extraction_method"`
	PageNumbers      []int   `json:"page_numbers"`
	ChunkIndex       int     `json:"chunk_index"`
	TotalChunks      int     `json:"total_chunks"`
	Text             string  `json:"text"`
	Score            float64 `json:"score"`
}

// GetTextInput is the input schema for the get_document_text tool.
type GetTextInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier returned by ingest_document or search_documents"`
}

// GetTextOutput is the output schema for the get_document_text tool.
type GetTextOutput struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// ListInput is the input schema for the list_documents tool.
type ListInput struct {
	ApplicationRef string `json:"application_ref" jsonschema:"application or collection reference"`
}

// ListOutput is the output schema for the list_documents tool.
type ListOutput struct {
	ApplicationRef string           `json:"application_ref"`
	Documents      []DocumentOutput `json:"documents"`
	Count          int              `json:"count"`
}

// DocumentOutput summarises one stored document.
type DocumentOutput struct {
	DocumentID       string `json:"document_id"`
	SourceFilename   string `json:"source_filename"`
	DocumentType     string `json:"document_type"`
	ChunkCount       int    `json:"chunk_count"`
	ExtractionMethod string `json:"extraction_method"`
	ContainsDrawings bool   `json:"contains_drawings"`
	IngestedAt       string `json:"ingested_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ingest_document",
		Description: "Extract, chunk, embed and store a PDF or image for an application. " +
			"Re-ingesting identical content reports already_ingested; mostly-image PDFs are skipped.",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over ingested document chunks, optionally filtered by application and type",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document_text",
		Description: "Return the full extracted text of an ingested document",
	}, s.handleGetText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents ingested for an application",
	}, s.handleList)
}

// handleIngest handles the ingest_document tool invocation. Pipeline
// failures are reported in the outcome rather than as tool errors.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	ctx = logger.WithContext(ctx, s.logger.With(zap.String("tool", "ingest_document")))

	out, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		Path:           input.Path,
		ApplicationRef: input.ApplicationRef,
		DocumentType:   input.DocumentType,
	})
	if out == nil {
		return nil, IngestOutput{}, toolError(err)
	}

	return nil, IngestOutput{
		Status:           string(out.Status),
		DocumentID:       out.DocumentID,
		SourceFilename:   out.SourceFilename,
		ChunksCreated:    out.ChunksCreated,
		ExtractionMethod: string(out.ExtractionMethod),
		DocumentType:     out.DocumentType,
		ContainsDrawings: out.ContainsDrawings,
		ImageRatio:       out.ImageRatio,
		Reason:           out.Reason,
		ErrorKind:        string(out.ErrorKind),
		Message:          out.Message,
		Warnings:         out.Warnings,
	}, nil
}

// handleSearch handles the search_documents tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	ctx = logger.WithContext(ctx, s.logger.With(zap.String("tool", "search_documents")))

	results, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{
		ApplicationRef: input.ApplicationRef,
		DocumentTypes:  input.DocumentTypes,
		MaxResults:     input.MaxResults,
	})
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		c := &results[i].Chunk
		pages := c.PageNumbers
		if pages == nil {
			pages = []int{}
		}
		output.Results[i] = SearchResultOutput{
			ChunkID:          c.ID,
			DocumentID:       c.DocumentID,
			ApplicationRef:   c.ApplicationRef,
			SourceFilename:   c.SourceFilename,
			DocumentType:     c.DocumentType,
			ExtractionMethod: string(c.ExtractionMethod),
			PageNumbers:      pages,
			ChunkIndex:       c.Index,
			TotalChunks:      c.TotalChunks,
			Text:             c.Text,
			Score:            results[i].Score,
		}
	}

	return nil, output, nil
}

// handleGetText handles the get_document_text tool invocation.
func (s *Server) handleGetText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetTextInput,
) (*mcp.CallToolResult, GetTextOutput, error) {
	text, err := s.ports.Document.GetText(ctx, input.DocumentID)
	if err != nil {
		return nil, GetTextOutput{}, toolError(err)
	}
	return nil, GetTextOutput{DocumentID: input.DocumentID, Text: text}, nil
}

// handleList handles the list_documents tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.Document.ListDocuments(ctx, input.ApplicationRef)
	if err != nil {
		return nil, ListOutput{}, toolError(err)
	}

	output := ListOutput{
		ApplicationRef: input.ApplicationRef,
		Documents:      documentOutputs(docs),
		Count:          len(docs),
	}
	return nil, output, nil
}

func documentOutputs(docs []domain.DocumentSummary) []DocumentOutput {
	out := make([]DocumentOutput, len(docs))
	for i, d := range docs {
		out[i] = DocumentOutput{
			DocumentID:       d.ID,
			SourceFilename:   d.SourceFilename,
			DocumentType:     d.DocumentType,
			ChunkCount:       d.ChunkCount,
			ExtractionMethod: string(d.ExtractionMethod),
			ContainsDrawings: d.ContainsDrawings,
			IngestedAt:       d.IngestedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}
