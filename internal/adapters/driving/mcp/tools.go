package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query        string   `json:"query" jsonschema:"the question to answer from indexed documents"`
	DocIDs       []string `json:"doc_ids,omitempty" jsonschema:"restrict retrieval to these document ids"`
	Limit        int      `json:"limit,omitempty" jsonschema:"number of chunks given to the LLM (default: configured top_k)"`
	UseReranking *bool    `json:"use_reranking,omitempty" jsonschema:"rerank retrieved chunks before answering (default: configured)"`
	Provider     string   `json:"provider,omitempty" jsonschema:"LLM backend: mistral, groq or anthropic"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Answer         string            `json:"answer"`
	Claims         []domain.Claim    `json:"claims"`
	Citations      []domain.Citation `json:"citations"`
	Sources        []domain.Source   `json:"sources"`
	Confidence     float64           `json:"confidence"`
	ProcessingTime float64           `json:"processing_time"`
	Success        bool              `json:"success"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	Provider       string            `json:"provider,omitempty"`
	Reranked       bool              `json:"reranked"`
}

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	Path  string `json:"path" jsonschema:"file or directory to ingest"`
	DocID string `json:"doc_id,omitempty" jsonschema:"document id for a single file (default: file name without extension)"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	Processed   int                      `json:"processed"`
	Skipped     int                      `json:"skipped"`
	Errors      int                      `json:"errors"`
	TotalChunks int                      `json:"total_chunks"`
	Results     []domain.IngestionResult `json:"results"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents a single indexed document.
type DocumentOutput struct {
	DocID       string `json:"doc_id"`
	ChunksCount int    `json:"chunks_count"`
	PagesCount  int    `json:"pages_count"`
	PagesRange  string `json:"pages_range"`
	FilePath    string `json:"file_path,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// HealthInput is the (empty) input schema for the health_check tool.
type HealthInput struct{}

// HealthOutput is the output schema for the health_check tool.
type HealthOutput struct {
	Components map[string]bool `json:"components"`
	Healthy    bool            `json:"healthy"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Answer a question from indexed documents, with page citations",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Index a file or every supported file under a directory",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List indexed documents with their chunk and page counts",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "health_check",
		Description: "Report which components are reachable",
	}, s.handleHealth)
}

// handleSearch handles the search tool invocation.
// Retrieval failures are reported in the output, not as tool errors.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		DocIDs:       input.DocIDs,
		Limit:        input.Limit,
		UseReranking: s.useReranking(input.UseReranking),
		Provider:     domain.LLMProvider(input.Provider),
	}

	resp := s.ports.Retrieval.Search(ctx, input.Query, opts)

	return nil, SearchOutput{
		Answer:         resp.Answer,
		Claims:         nonNil(resp.Claims),
		Citations:      nonNil(resp.Citations),
		Sources:        nonNil(resp.Sources),
		Confidence:     resp.Confidence,
		ProcessingTime: resp.ProcessingTime,
		Success:        resp.Success,
		ErrorMessage:   resp.ErrorMessage,
		Provider:       string(resp.Provider),
		Reranked:       resp.Reranked,
	}, nil
}

func (s *Server) useReranking(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	if s.ports.Settings != nil {
		if settings, err := s.ports.Settings.Get(); err == nil {
			return settings.Retrieval.UseReranking
		}
	}
	return true
}

// handleIngest handles the ingest_document tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, IngestOutput{}, fmt.Errorf("ingest_document: %w", ErrServiceUnavailable)
	}
	if input.Path == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	stats := &domain.IngestionStats{}
	if info.IsDir() {
		// Per-file failures are already counted in stats.
		var dirErr error
		stats, dirErr = s.ports.Ingestion.IngestDirectory(ctx, input.Path)
		if stats == nil {
			return nil, IngestOutput{}, fmt.Errorf("ingesting directory: %w", dirErr)
		}
	} else {
		stats.Add(s.ports.Ingestion.IngestDocument(ctx, input.Path, input.DocID))
	}

	return nil, IngestOutput{
		Processed:   stats.Processed,
		Skipped:     stats.Skipped,
		Errors:      stats.Errors,
		TotalChunks: stats.TotalChunks,
		Results:     nonNil(stats.Results),
	}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Collection == nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("list_documents: %w", ErrServiceUnavailable)
	}

	docs, err := s.ports.Collection.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentOutput{
			DocID:       docs[i].DocID,
			ChunksCount: docs[i].ChunksCount,
			PagesCount:  docs[i].PagesCount,
			PagesRange:  docs[i].PagesRange,
			FilePath:    docs[i].FilePath,
		}
		if !docs[i].CreatedAt.IsZero() {
			output.Documents[i].CreatedAt = docs[i].CreatedAt.Format(time.RFC3339)
		}
	}

	return nil, output, nil
}

// handleHealth handles the health_check tool invocation.
func (s *Server) handleHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ HealthInput,
) (*mcp.CallToolResult, HealthOutput, error) {
	if s.ports.Collection == nil {
		return nil, HealthOutput{}, fmt.Errorf("health_check: %w", ErrServiceUnavailable)
	}

	report := s.ports.Collection.HealthCheck(ctx)
	return nil, HealthOutput{Components: report, Healthy: report.Healthy()}, nil
}

// nonNil keeps empty lists as [] rather than null in tool output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
