// Package mcp provides an MCP (Model Context Protocol) server adapter for ragpipe.
// It lets AI assistants ask questions about indexed documents and manage the index.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrServiceUnavailable is returned by tools whose optional service is not configured.
var ErrServiceUnavailable = errors.New("mcp: service not configured")
