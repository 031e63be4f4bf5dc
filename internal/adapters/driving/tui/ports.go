// Package tui provides an interactive terminal interface for asking
// questions about uploaded files and managing them.
package tui

import (
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	Query driving.QueryService
	Files driving.FileService

	// Ingest enables reindexing from the files view. Optional.
	Ingest driving.IngestService

	// Owner is the identity every call is made for.
	Owner string

	// TopK overrides the default number of passages per query.
	TopK int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Files == nil {
		return ErrMissingFileService
	}
	if strings.TrimSpace(p.Owner) == "" {
		return ErrMissingOwner
	}
	return nil
}
