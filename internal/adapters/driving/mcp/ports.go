package mcp

import (
	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers questions.
	Retrieval driving.RetrievalService

	// Ingestion adds documents. Optional: the ingest tool reports an error without it.
	Ingestion driving.IngestionService

	// Collection lists documents and reports health. Optional.
	Collection driving.CollectionService

	// Settings supplies query defaults. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
