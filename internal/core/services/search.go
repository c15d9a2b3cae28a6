package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
	"github.com/custodia-labs/overlayc/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit is used when SearchOptions.Limit is not set.
const DefaultSearchLimit = 20

// SearchService provides the read path over the vector index.
type SearchService struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
}

// NewSearchService creates a new search service.
// The embedder is optional; without it only Browse works.
func NewSearchService(index driven.VectorIndex, embedder driven.EmbeddingService) *SearchService {
	return &SearchService{index: index, embedder: embedder}
}

// Search embeds query and returns the closest published chunks.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	// Return empty for empty query
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	limit := searchLimit(opts)
	filter := searchFilter(opts)
	logger.Debug("Limit: %d, conditions: %d", limit, len(filter.Must)+len(filter.MustNot))

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vector, filter, limit)
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, toSearchResult(h.Payload, h.Score))
	}
	logger.Info("Final results: %d", len(results))
	return results, nil
}

// Browse lists published chunks matching opts in index order.
func (s *SearchService) Browse(ctx context.Context, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	limit := searchLimit(opts)
	filter := searchFilter(opts)

	results := make([]domain.SearchResult, 0, limit)
	offset := ""
	for len(results) < limit {
		page, err := s.index.Scroll(ctx, filter, limit-len(results), offset)
		if err != nil {
			return nil, fmt.Errorf("browse: %w", err)
		}
		for _, p := range page.Points {
			results = append(results, toSearchResult(p.Payload, 0))
		}
		if page.NextOffset == "" {
			break
		}
		offset = page.NextOffset
	}
	return results, nil
}

// searchFilter ANDs the published filter with the optional narrowing
// conditions. The published filter is always present.
func searchFilter(opts domain.SearchOptions) domain.IndexFilter {
	var narrow domain.IndexFilter
	if opts.Domain != "" {
		narrow.Must = append(narrow.Must, domain.Match(domain.FieldDomain, string(opts.Domain)))
	}
	if opts.DomainKey != "" {
		narrow.Must = append(narrow.Must, domain.Match(domain.FieldDomainKey, opts.DomainKey))
	}
	if len(opts.SubKeys) > 0 {
		narrow.Must = append(narrow.Must, domain.MatchAny(domain.FieldSubKey, opts.SubKeys...))
	}
	if len(opts.Guardrails) > 0 {
		levels := make([]string, len(opts.Guardrails))
		for i, g := range opts.Guardrails {
			levels[i] = string(g)
		}
		narrow.Must = append(narrow.Must, domain.MatchAny(domain.FieldGuardrail, levels...))
	}
	return domain.PublishedFilter().And(narrow)
}

func searchLimit(opts domain.SearchOptions) int {
	if opts.Limit <= 0 {
		return DefaultSearchLimit
	}
	return opts.Limit
}

func toSearchResult(payload map[string]any, score float64) domain.SearchResult {
	return domain.SearchResult{
		OverlayID:  payloadString(payload, domain.FieldOverlayID),
		Title:      payloadString(payload, "title"),
		FullPath:   payloadString(payload, "full_path"),
		ChunkIndex: payloadInt(payload, domain.FieldChunkIndex),
		Text:       payloadString(payload, "text"),
		Score:      score,
	}
}
