package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func newResourceServer(t *testing.T) *Server {
	t.Helper()
	entries := &mockEntryService{entries: map[string]*domain.ContentEntry{
		"live":  {ID: "live", Title: "Welcome", Content: "Greet the caller.", Status: domain.StatusActive},
		"draft": {ID: "draft", Title: "Draft", Content: "Not yet.", Status: domain.StatusDraft},
	}}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Entries: entries})
	require.NoError(t, err)
	return server
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleEntryResource(t *testing.T) {
	ctx := context.Background()
	server := newResourceServer(t)

	t.Run("active entry", func(t *testing.T) {
		res, err := server.handleEntryResource(ctx, readRequest("overlayc://entries/live"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "# Welcome\n\nGreet the caller.", res.Contents[0].Text)
		assert.Equal(t, "text/markdown", res.Contents[0].MIMEType)
	})

	for _, uri := range []string{
		"overlayc://entries/draft",
		"overlayc://entries/missing",
		"overlayc://entries/",
		"overlayc://other/live",
	} {
		t.Run("not found "+uri, func(t *testing.T) {
			_, err := server.handleEntryResource(ctx, readRequest(uri))
			assert.Error(t, err)
		})
	}
}

func TestExtractOverlayID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"overlayc://entries/abc", "abc"},
		{"overlayc://entries/a/b", ""},
		{"overlayc://entries/", ""},
		{"other://entries/abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractOverlayID(tt.uri), tt.uri)
	}
}
