package driving

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// SearchService answers read-path queries against the vector index.
// Results never include deprecated, draft or placeholder points.
type SearchService interface {
	// Search embeds query and returns the closest published chunks.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Browse lists published chunks matching opts without a query.
	Browse(ctx context.Context, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
