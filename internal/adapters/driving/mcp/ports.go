package mcp

import (
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Search is required.
	Search driving.SearchService

	// Compiler backs the compile_status tool. Optional.
	Compiler driving.Compiler

	// Entries backs the entry resource. Optional.
	Entries driving.EntryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
