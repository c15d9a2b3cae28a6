package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for overlayc resources.
	uriScheme = "overlayc://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Entries == nil {
		return
	}

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "entries/{overlayId}",
		Name:        "overlay-entry",
		Description: "Full content of a published overlay entry",
		MIMEType:    "text/markdown",
	}, s.handleEntryResource)
}

// handleEntryResource returns the content of one active entry. Drafts and
// deprecated entries are reported as not found.
func (s *Server) handleEntryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Entries == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractOverlayID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entry, err := s.ports.Entries.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	if !entry.IsActive() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     fmt.Sprintf("# %s\n\n%s", entry.Title, entry.Content),
		}},
	}, nil
}

// extractOverlayID extracts the id from a URI like overlayc://entries/{overlayId}.
func extractOverlayID(uri string) string {
	const prefix = uriScheme + "entries/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
