package domain

import "time"

// AuditAction names a repository mutation.
type AuditAction string

// Audit actions written by the repository.
const (
	AuditCreate         AuditAction = "CREATE"
	AuditUpdateMetadata AuditAction = "UPDATE_METADATA"
	AuditUpdateContent  AuditAction = "UPDATE_CONTENT"
	AuditUpdateStatus   AuditAction = "UPDATE_STATUS"
	AuditSoftDelete     AuditAction = "SOFT_DELETE"
	AuditSupersede      AuditAction = "SUPERSEDE"
	AuditHardDelete     AuditAction = "HARD_DELETE"
)

// AuditRecord is one append-only audit log row.
// OldValue and NewValue hold JSON, or are empty when not applicable.
type AuditRecord struct {
	ID        int64
	OverlayID string
	Action    AuditAction
	OldValue  string
	NewValue  string
	ChangedAt time.Time
	ChangedBy string
}

// IsNoOp reports whether the record captured no effective change.
func (r AuditRecord) IsNoOp() bool {
	return r.OldValue == r.NewValue
}
