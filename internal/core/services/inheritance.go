package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
)

// Ensure InheritanceResolver implements the interface.
var _ driving.InheritanceResolver = (*InheritanceResolver)(nil)

// scopeReader is the part of the entry service the resolver needs.
type scopeReader interface {
	GetByScope(ctx context.Context, d domain.Domain, domainKey, subKey string) ([]*domain.ContentEntry, error)
}

// InheritanceResolver merges _shared entries into each individual's view.
// Title equality is the only override key: an individual entry with a new
// title adds to the view, one with a shared title replaces the shared entry.
type InheritanceResolver struct {
	entries scopeReader
}

// NewInheritanceResolver creates a resolver over the entry repository.
func NewInheritanceResolver(entries scopeReader) *InheritanceResolver {
	return &InheritanceResolver{entries: entries}
}

// ResolveForIndividual returns shared entries the individual does not
// override (inherited) followed by the individual's own entries.
func (r *InheritanceResolver) ResolveForIndividual(
	ctx context.Context, d domain.Domain, domainKey, individual string,
) ([]driving.ResolvedEntry, error) {
	shared, own, err := r.load(ctx, d, domainKey, individual)
	if err != nil {
		return nil, err
	}

	overridden := titles(own)
	out := make([]driving.ResolvedEntry, 0, len(shared)+len(own))
	for _, e := range shared {
		if overridden[e.Title] {
			continue
		}
		out = append(out, driving.ResolvedEntry{Entry: e, Inherited: true})
	}
	for _, e := range own {
		out = append(out, driving.ResolvedEntry{Entry: e, Inherited: false})
	}
	return out, nil
}

// ResolveForGroup resolves each individual, skipping "_shared".
func (r *InheritanceResolver) ResolveForGroup(
	ctx context.Context, d domain.Domain, domainKey string, individuals []string,
) (map[string][]driving.ResolvedEntry, error) {
	out := make(map[string][]driving.ResolvedEntry, len(individuals))
	for _, individual := range individuals {
		if individual == domain.SharedSubKey {
			continue
		}
		resolved, err := r.ResolveForIndividual(ctx, d, domainKey, individual)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", individual, err)
		}
		out[individual] = resolved
	}
	return out, nil
}

// HasOverride reports whether the individual has an entry titled title.
func (r *InheritanceResolver) HasOverride(
	ctx context.Context, d domain.Domain, domainKey, individual, title string,
) (bool, error) {
	own, err := r.entries.GetByScope(ctx, d, domainKey, individual)
	if err != nil {
		return false, err
	}
	return titles(own)[title], nil
}

// UniqueEntries returns the individual's entries that add to, rather than
// override, the shared scope.
func (r *InheritanceResolver) UniqueEntries(
	ctx context.Context, d domain.Domain, domainKey, individual string,
) ([]*domain.ContentEntry, error) {
	shared, own, err := r.load(ctx, d, domainKey, individual)
	if err != nil {
		return nil, err
	}
	sharedTitles := titles(shared)
	out := make([]*domain.ContentEntry, 0, len(own))
	for _, e := range own {
		if !sharedTitles[e.Title] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *InheritanceResolver) load(
	ctx context.Context, d domain.Domain, domainKey, individual string,
) (shared, own []*domain.ContentEntry, err error) {
	if individual == "" {
		return nil, nil, domain.NewValidationError("individual", "required")
	}
	shared, err = r.entries.GetByScope(ctx, d, domainKey, domain.SharedSubKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load shared entries: %w", err)
	}
	if individual == domain.SharedSubKey {
		return shared, nil, nil
	}
	own, err = r.entries.GetByScope(ctx, d, domainKey, individual)
	if err != nil {
		return nil, nil, fmt.Errorf("load entries for %s: %w", individual, err)
	}
	return shared, own, nil
}

func titles(entries []*domain.ContentEntry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.Title] = true
	}
	return set
}
