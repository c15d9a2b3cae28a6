package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
	"github.com/custodia-labs/overlayc/internal/logger"
)

// Ensure EntryService implements the interface.
var _ driving.EntryService = (*EntryService)(nil)

// defaultActor is recorded when a caller does not name one.
const defaultActor = "system"

// EntryService is the overlay content repository. It owns hashing,
// versioning and the audit trail; the store only persists.
type EntryService struct {
	store driven.EntryStore
	now   func() time.Time
	newID func() string
}

// NewEntryService creates a new entry service.
func NewEntryService(store driven.EntryStore) *EntryService {
	return &EntryService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Create validates input and stores a new entry at v1.0.
func (s *EntryService) Create(ctx context.Context, input domain.EntryInput, actor string) (*domain.ContentEntry, error) {
	applyInputDefaults(&input)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	e := s.newEntry(input, now)
	e.Version = domain.EntryVersion{Major: 1, Minor: 0}
	RefreshHashes(e)

	if err := s.store.Create(ctx, e, s.audit(e.ID, domain.AuditCreate, "", snapshot(e), actor, now)); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	logger.Debug("Created overlay %s (%s)", e.ID, e.FullPath())
	return e, nil
}

// Get retrieves an entry by ID.
func (s *EntryService) Get(ctx context.Context, id string) (*domain.ContentEntry, error) {
	return s.store.Get(ctx, id)
}

// GetByScope returns the non-deprecated entries at a scope.
func (s *EntryService) GetByScope(
	ctx context.Context, d domain.Domain, domainKey, subKey string,
) ([]*domain.ContentEntry, error) {
	entries, err := s.store.ListByScope(ctx, d, domainKey, subKey)
	if err != nil {
		return nil, fmt.Errorf("list scope %s/%s: %w", d, domainKey, err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Status != domain.StatusDeprecated {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListActive returns every active entry.
func (s *EntryService) ListActive(ctx context.Context) ([]*domain.ContentEntry, error) {
	return s.store.ListByStatus(ctx, domain.StatusActive)
}

// UpdateContent replaces the content and bumps the major version.
// Content identical to the stored content leaves the entry untouched.
func (s *EntryService) UpdateContent(ctx context.Context, id, content, actor string) (*domain.ContentEntry, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ContentHash(content) == old.ContentHash {
		logger.Debug("Overlay %s content unchanged", id)
		return old, nil
	}

	now := s.now()
	e := old.Clone()
	e.Content = content
	e.ContentHash = ContentHash(content)
	e.Version = e.Version.BumpMajor()
	e.Lifecycle.UpdatedAt = now

	audit := s.audit(id, domain.AuditUpdateContent, snapshot(old), snapshot(e), actor, now)
	if err := s.store.Update(ctx, e, audit); err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}
	return e, nil
}

// UpdateMetadata applies patch and bumps the minor version.
// The content hash and major version are never touched.
func (s *EntryService) UpdateMetadata(
	ctx context.Context, id string, patch domain.MetadataPatch, actor string,
) (*domain.ContentEntry, error) {
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	e := old.Clone()
	patch.Apply(e)
	e.MetadataHash = MetadataHash(e)
	if snapshot(e) == snapshot(old) {
		logger.Debug("Overlay %s metadata unchanged", id)
		return old, nil
	}

	now := s.now()
	e.Version = e.Version.BumpMinor()
	e.Lifecycle.UpdatedAt = now

	audit := s.audit(id, domain.AuditUpdateMetadata, snapshot(old), snapshot(e), actor, now)
	if err := s.store.Update(ctx, e, audit); err != nil {
		return nil, fmt.Errorf("update metadata: %w", err)
	}
	return e, nil
}

// SetStatus moves an entry to status. Every call is audited, including
// calls that do not change anything.
func (s *EntryService) SetStatus(
	ctx context.Context, id string, status domain.EntryStatus, actor string,
) (*domain.ContentEntry, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "overlay_status")
	}
	return s.transition(ctx, id, status, domain.AuditUpdateStatus, actor)
}

// SoftDelete marks an entry deprecated. A second call records an audit row
// whose old and new values are equal.
func (s *EntryService) SoftDelete(ctx context.Context, id, actor string) error {
	_, err := s.transition(ctx, id, domain.StatusDeprecated, domain.AuditSoftDelete, actor)
	return err
}

func (s *EntryService) transition(
	ctx context.Context, id string, status domain.EntryStatus, action domain.AuditAction, actor string,
) (*domain.ContentEntry, error) {
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	e := old.Clone()
	if e.Status != status {
		e.Status = status
		e.Lifecycle.UpdatedAt = now
	}
	audit := s.audit(id, action, statusValue(old.Status), statusValue(e.Status), actor, now)
	if err := s.store.Update(ctx, e, audit); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return e, nil
}

// Supersede deprecates oldID and creates its replacement with the next
// major version and a back reference.
func (s *EntryService) Supersede(
	ctx context.Context, oldID string, input domain.EntryInput, actor string,
) (*domain.ContentEntry, error) {
	old, err := s.store.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	applyInputDefaults(&input)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	retired := old.Clone()
	retired.Status = domain.StatusDeprecated
	retired.Lifecycle.UpdatedAt = now

	e := s.newEntry(input, now)
	e.Version = domain.EntryVersion{Major: old.Version.Major + 1, Minor: 0}
	supersedes := oldID
	e.Lifecycle.Supersedes = &supersedes
	RefreshHashes(e)

	err = s.store.Supersede(ctx, retired, e,
		s.audit(oldID, domain.AuditSoftDelete, statusValue(old.Status), statusValue(retired.Status), actor, now),
		s.audit(e.ID, domain.AuditSupersede, snapshot(old), snapshot(e), actor, now),
	)
	if err != nil {
		return nil, fmt.Errorf("supersede %s: %w", oldID, err)
	}
	logger.Debug("Overlay %s superseded by %s", oldID, e.ID)
	return e, nil
}

// HardDelete permanently removes an entry once confirmation matches.
// The full prior entry is kept in the audit log.
func (s *EntryService) HardDelete(ctx context.Context, id, confirmation, actor string) error {
	if confirmation != domain.HardDeleteToken(id) {
		return fmt.Errorf("%w: hard delete of %s requires confirmation %q",
			domain.ErrPermissionDenied, id, domain.HardDeleteToken(id))
	}
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	audit := s.audit(id, domain.AuditHardDelete, snapshot(old), "", actor, s.now())
	if err := s.store.HardDelete(ctx, id, audit); err != nil {
		return fmt.Errorf("hard delete: %w", err)
	}
	logger.Warn("Overlay %s permanently deleted by %s", id, audit.ChangedBy)
	return nil
}

// AuditLog returns the audit trail of an entry, most recent first.
func (s *EntryService) AuditLog(ctx context.Context, id string) ([]domain.AuditRecord, error) {
	return s.store.AuditLog(ctx, id)
}

func (s *EntryService) newEntry(input domain.EntryInput, now time.Time) *domain.ContentEntry {
	return &domain.ContentEntry{
		ID:             s.newID(),
		Title:          input.Title,
		Status:         input.Status,
		Content:        input.Content,
		Domain:         input.Domain,
		Scope:          input.Scope,
		Associations:   input.Associations,
		Guardrails:     input.Guardrails,
		AuthoringNotes: input.AuthoringNotes,
		Lifecycle:      domain.Lifecycle{CreatedAt: now, UpdatedAt: now},
	}
}

func (s *EntryService) audit(
	id string, action domain.AuditAction, oldValue, newValue, actor string, at time.Time,
) domain.AuditRecord {
	if actor == "" {
		actor = defaultActor
	}
	return domain.AuditRecord{
		OverlayID: id,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedAt: at,
		ChangedBy: actor,
	}
}

// snapshot renders an entry for the audit log.
func snapshot(e *domain.ContentEntry) string {
	data, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(data)
}

func statusValue(status domain.EntryStatus) string {
	return fmt.Sprintf(`{"status":%q}`, status)
}
