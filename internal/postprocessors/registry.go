// Package postprocessors builds the chunkers a compile splits content with.
package postprocessors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// BuilderFunc creates a Chunker from the flattened chunker.* settings.
type BuilderFunc func(cfg map[string]any) (driven.Chunker, error)

// Registry maps strategy names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{builders: map[string]BuilderFunc{}}
	registerDefaults(r)
	return r
}

// Register adds or replaces the builder for name. Names are case-insensitive.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[strings.ToLower(name)] = builder
}

// Build creates the chunker for strategy. An empty strategy selects
// DefaultStrategy.
func (r *Registry) Build(strategy string, cfg map[string]any) (driven.Chunker, error) {
	if strategy == "" {
		strategy = DefaultStrategy
	}
	builder, ok := r.builders[strings.ToLower(strategy)]
	if !ok {
		return nil, fmt.Errorf("unknown chunking strategy %q (have %s)",
			strategy, strings.Join(r.Names(), ", "))
	}
	c, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("chunking strategy %s: %w", strategy, err)
	}
	return c, nil
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
