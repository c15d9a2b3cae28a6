// Package mcp provides an MCP (Model Context Protocol) server adapter for
// overlayc. It lets agents search published overlays and check how far the
// index lags behind the repository.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
