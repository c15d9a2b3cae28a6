package driven

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// EntryStore persists overlay entries and their audit log.
// Every mutating call writes the entry change and its audit records in one
// transaction: either both land or neither does.
type EntryStore interface {
	// Create inserts a new entry.
	Create(ctx context.Context, entry *domain.ContentEntry, audit domain.AuditRecord) error

	// Update replaces a stored entry.
	// Returns domain.ErrNotFound if the entry does not exist.
	Update(ctx context.Context, entry *domain.ContentEntry, audit domain.AuditRecord) error

	// Supersede updates old and inserts replacement together.
	Supersede(ctx context.Context, old, replacement *domain.ContentEntry, audits ...domain.AuditRecord) error

	// HardDelete removes the entry row. Audit rows for it are kept.
	// Returns domain.ErrNotFound if the entry does not exist.
	HardDelete(ctx context.Context, id string, audit domain.AuditRecord) error

	// Get retrieves an entry by ID.
	// Returns domain.ErrNotFound if the entry does not exist.
	Get(ctx context.Context, id string) (*domain.ContentEntry, error)

	// ListByScope returns entries in d under a domain key, optionally
	// narrowed to one sub key, in any status. Results are ordered by
	// created_at.
	ListByScope(ctx context.Context, d domain.Domain, domainKey, subKey string) ([]*domain.ContentEntry, error)

	// ListByStatus returns every entry with the given status, ordered by ID.
	ListByStatus(ctx context.Context, status domain.EntryStatus) ([]*domain.ContentEntry, error)

	// AuditLog returns audit records for an entry, most recent first.
	AuditLog(ctx context.Context, id string) ([]domain.AuditRecord, error)

	// Close releases resources.
	Close() error
}
