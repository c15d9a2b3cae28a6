package driving

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// EntryService manages the lifecycle of overlay entries.
// Every mutation recomputes hashes and versions and writes an audit record.
type EntryService interface {
	// Create validates input and stores a new entry at version v1.0.
	Create(ctx context.Context, input domain.EntryInput, actor string) (*domain.ContentEntry, error)

	// Get retrieves an entry by ID.
	Get(ctx context.Context, id string) (*domain.ContentEntry, error)

	// UpdateContent replaces the content. A changed content hash bumps the
	// major version; an identical one is a no-op.
	UpdateContent(ctx context.Context, id, content, actor string) (*domain.ContentEntry, error)

	// UpdateMetadata applies a partial update. A changed metadata hash bumps
	// the minor version.
	UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch, actor string) (*domain.ContentEntry, error)

	// SetStatus moves an entry between draft, active and deprecated.
	SetStatus(ctx context.Context, id string, status domain.EntryStatus, actor string) (*domain.ContentEntry, error)

	// SoftDelete marks an entry deprecated. Calling it twice is harmless.
	SoftDelete(ctx context.Context, id, actor string) error

	// Supersede deprecates oldID and creates its replacement.
	Supersede(ctx context.Context, oldID string, input domain.EntryInput, actor string) (*domain.ContentEntry, error)

	// HardDelete permanently removes an entry. confirmation must equal
	// domain.HardDeleteToken(id), otherwise domain.ErrPermissionDenied.
	HardDelete(ctx context.Context, id, confirmation, actor string) error

	// GetByScope returns the non-deprecated entries at a scope. An empty
	// subKey returns every sub key under domainKey.
	GetByScope(ctx context.Context, d domain.Domain, domainKey, subKey string) ([]*domain.ContentEntry, error)

	// ListActive returns every active entry.
	ListActive(ctx context.Context) ([]*domain.ContentEntry, error)

	// AuditLog returns the audit trail of an entry, most recent first.
	AuditLog(ctx context.Context, id string) ([]domain.AuditRecord, error)
}
