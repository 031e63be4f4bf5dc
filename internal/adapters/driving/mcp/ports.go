package mcp

import (
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	Ingest driving.IngestService
	Query  driving.QueryService
	Files  driving.FileService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Ingest == nil:
		return ErrMissingIngestService
	case p.Query == nil:
		return ErrMissingQueryService
	case p.Files == nil:
		return ErrMissingFileService
	}
	return nil
}
