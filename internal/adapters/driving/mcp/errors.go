// Package mcp exposes grabdocs ingestion and retrieval as MCP tools so
// assistants can add files and ask questions over them.
package mcp

import "errors"

var (
	// ErrMissingIngestService is returned when the ingest service is not provided.
	ErrMissingIngestService = errors.New("mcp: ingest service is required")

	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("mcp: query service is required")

	// ErrMissingFileService is returned when the file service is not provided.
	ErrMissingFileService = errors.New("mcp: file service is required")

	// ErrNoContent is returned by ingest_file when neither path nor content is set.
	ErrNoContent = errors.New("mcp: either path or content is required")
)
