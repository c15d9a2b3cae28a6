package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/postprocessors/chunker"
)

// DefaultStrategy is used when chunker.strategy is not configured.
const DefaultStrategy = "boundary"

// registerDefaults adds the built-in chunking strategies.
func registerDefaults(r *Registry) {
	r.Register("boundary", func(cfg map[string]any) (driven.Chunker, error) {
		return newChunker(cfg)
	})
	r.Register("fixed", func(cfg map[string]any) (driven.Chunker, error) {
		return newChunker(cfg, chunker.WithFixedSize())
	})
}

// newChunker rejects an explicit overlap that would leave no room to
// advance instead of letting the chunker silently shrink it.
func newChunker(cfg map[string]any, extra ...chunker.Option) (driven.Chunker, error) {
	maxSize := chunker.DefaultMaxChunkSize
	if v, ok := getIntFromConfig(cfg, "max_chunk_size"); ok && v > 0 {
		maxSize = v
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap_size"); ok && overlap >= maxSize {
		return nil, fmt.Errorf("overlap_size %d must be below max_chunk_size %d", overlap, maxSize)
	}
	return chunker.New(append(chunkerOptions(cfg), extra...)...), nil
}

// chunkerOptions maps generic config onto chunker options.
// Supported config keys:
//   - max_chunk_size (int): Maximum characters per chunk (default: 1000)
//   - overlap_size (int): Overlapping characters between chunks (default: 100)
//   - min_chunk_size (int): Trailing chunk floor (default: 200)
//   - boundary_window (int): Boundary search distance (default: 100)
func chunkerOptions(cfg map[string]any) []chunker.Option {
	var opts []chunker.Option
	if cfg == nil {
		return opts
	}
	if v, ok := getIntFromConfig(cfg, "max_chunk_size"); ok {
		opts = append(opts, chunker.WithMaxChunkSize(v))
	}
	if v, ok := getIntFromConfig(cfg, "overlap_size"); ok {
		opts = append(opts, chunker.WithOverlap(v))
	}
	if v, ok := getIntFromConfig(cfg, "min_chunk_size"); ok {
		opts = append(opts, chunker.WithMinChunkSize(v))
	}
	if v, ok := getIntFromConfig(cfg, "boundary_window"); ok {
		opts = append(opts, chunker.WithBoundaryWindow(v))
	}
	return opts
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
