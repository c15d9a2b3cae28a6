package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// SearchInput is the input schema for the search_overlays tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"natural language query"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Domain     string   `json:"domain,omitempty" jsonschema:"restrict to one domain, e.g. voice or policy"`
	DomainKey  string   `json:"domain_key,omitempty" jsonschema:"restrict to one domain key"`
	SubKeys    []string `json:"sub_keys,omitempty" jsonschema:"restrict to these sub keys, e.g. an individual and _shared"`
	Guardrails []string `json:"guardrails,omitempty" jsonschema:"restrict to these guardrail levels"`
}

// SearchOutput is the output schema for the search_overlays tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search hit.
type SearchResultOutput struct {
	OverlayID  string  `json:"overlay_id"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// StatusInput is the empty input of the compile_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the compile_status tool.
type StatusOutput struct {
	Version        string         `json:"version"`
	OverlayCount   int            `json:"overlay_count"`
	IndexCount     int            `json:"index_count"`
	PendingChanges int            `json:"pending_changes"`
	Changes        map[string]int `json:"changes"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_overlays",
		Description: "Semantic search over published overlay content",
	}, s.handleSearch)

	if s.ports.Compiler != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "compile_status",
			Description: "Report the build version and how many entries the next compile would touch",
		}, s.handleStatus)
	}
}

// handleSearch handles the search_overlays tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := domain.SearchOptions{
		Limit:     limit,
		Domain:    domain.Domain(input.Domain),
		DomainKey: input.DomainKey,
		SubKeys:   input.SubKeys,
	}
	for _, g := range input.Guardrails {
		opts.Guardrails = append(opts.Guardrails, domain.GuardrailLevel(g))
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			OverlayID:  r.OverlayID,
			Title:      r.Title,
			Path:       r.FullPath,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Score,
			Text:       r.Text,
		}
	}

	return nil, output, nil
}

// handleStatus handles the compile_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Compiler == nil {
		return nil, StatusOutput{}, errors.New("compiler not configured")
	}

	status, err := s.ports.Compiler.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		Version:        status.Version,
		OverlayCount:   status.OverlayCount,
		IndexCount:     status.IndexCount,
		PendingChanges: status.PendingChanges,
		Changes:        make(map[string]int),
	}
	for _, c := range domain.ChangeTypes() {
		out.Changes[c.String()] = status.Summary.Count(c)
	}
	return nil, out, nil
}
