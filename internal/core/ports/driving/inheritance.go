package driving

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// ResolvedEntry is an entry in an individual's effective view.
type ResolvedEntry struct {
	Entry *domain.ContentEntry

	// Inherited is true when the entry comes from the _shared sub key.
	Inherited bool
}

// InheritanceResolver computes effective entries for individuals.
// An individual entry overrides a shared one when their titles are equal.
type InheritanceResolver interface {
	// ResolveForIndividual returns the shared entries not overridden by the
	// individual, followed by the individual's own entries.
	ResolveForIndividual(ctx context.Context, d domain.Domain, domainKey, individual string) ([]ResolvedEntry, error)

	// ResolveForGroup resolves each listed individual. A literal "_shared"
	// in the list is skipped.
	ResolveForGroup(ctx context.Context, d domain.Domain, domainKey string, individuals []string) (map[string][]ResolvedEntry, error)

	// HasOverride reports whether the individual has an entry titled title.
	HasOverride(ctx context.Context, d domain.Domain, domainKey, individual, title string) (bool, error)

	// UniqueEntries returns the individual's entries whose titles do not
	// appear in the shared scope.
	UniqueEntries(ctx context.Context, d domain.Domain, domainKey, individual string) ([]*domain.ContentEntry, error)
}
