package driven

import "github.com/custodia-labs/overlayc/internal/core/domain"

// Chunker splits entry content into embeddable chunks.
// Implementations must be deterministic: the same content and configuration
// always yield the same chunks.
type Chunker interface {
	// Name returns the chunker identifier.
	Name() string

	// Chunk splits the entry. Empty content yields no chunks.
	Chunk(entry *domain.ContentEntry) []domain.Chunk
}
