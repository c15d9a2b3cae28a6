package driven

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// VectorIndex stores overlay chunk points and answers similarity queries.
// Point identity is derived from (overlay_id, chunk_index) so an upsert of
// the same chunk overwrites in place.
type VectorIndex interface {
	// Upsert writes points, replacing any with the same identity.
	Upsert(ctx context.Context, points []domain.IndexPoint) error

	// SetPayload merges payload fields into every point of the overlays.
	SetPayload(ctx context.Context, overlayIDs []string, payload map[string]any) error

	// DeleteChunksFrom removes points of an overlay whose chunk_index is at
	// least fromIndex. Used to prune stale tail chunks after re-chunking.
	DeleteChunksFrom(ctx context.Context, overlayID string, fromIndex int) error

	// Scroll pages through points matching filter without a query vector.
	// An empty offset starts from the beginning.
	Scroll(ctx context.Context, filter domain.IndexFilter, limit int, offset string) (domain.ScrollPage, error)

	// Search returns the nearest points to vector that match filter.
	Search(ctx context.Context, vector []float32, filter domain.IndexFilter, limit int) ([]domain.ScoredPoint, error)

	// Count returns the number of points matching filter.
	Count(ctx context.Context, filter domain.IndexFilter) (int, error)

	// Close releases resources.
	Close() error
}
