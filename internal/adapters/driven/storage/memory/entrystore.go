package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// Ensure EntryStore implements the interface.
var _ driven.EntryStore = (*EntryStore)(nil)

// EntryStore is an in-memory implementation of driven.EntryStore.
// Entries are cloned on the way in and out so callers never alias storage.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.ContentEntry
	audits  []domain.AuditRecord
	nextID  int64
}

// NewEntryStore creates a new in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries: make(map[string]*domain.ContentEntry),
	}
}

// Create stores a new entry.
func (s *EntryStore) Create(_ context.Context, entry *domain.ContentEntry, audit domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; ok {
		return domain.NewValidationError("overlay_id", "unique")
	}
	s.entries[entry.ID] = entry.Clone()
	s.appendAudit(audit)
	return nil
}

// Update replaces a stored entry.
func (s *EntryStore) Update(_ context.Context, entry *domain.ContentEntry, audit domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return domain.NotFoundError(entry.ID)
	}
	s.entries[entry.ID] = entry.Clone()
	s.appendAudit(audit)
	return nil
}

// Supersede updates old and inserts replacement together.
func (s *EntryStore) Supersede(
	_ context.Context, old, replacement *domain.ContentEntry, audits ...domain.AuditRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[old.ID]; !ok {
		return domain.NotFoundError(old.ID)
	}
	if _, ok := s.entries[replacement.ID]; ok {
		return domain.NewValidationError("overlay_id", "unique")
	}
	s.entries[old.ID] = old.Clone()
	s.entries[replacement.ID] = replacement.Clone()
	for _, a := range audits {
		s.appendAudit(a)
	}
	return nil
}

// HardDelete removes an entry. Its audit records stay.
func (s *EntryStore) HardDelete(_ context.Context, id string, audit domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return domain.NotFoundError(id)
	}
	delete(s.entries, id)
	s.appendAudit(audit)
	return nil
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(_ context.Context, id string) (*domain.ContentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.NotFoundError(id)
	}
	return e.Clone(), nil
}

// ListByScope returns entries at a scope in any status.
func (s *EntryStore) ListByScope(
	_ context.Context, d domain.Domain, domainKey, subKey string,
) ([]*domain.ContentEntry, error) {
	return s.filter(func(e *domain.ContentEntry) bool {
		return e.Domain == d && e.Scope.DomainKey == domainKey &&
			(subKey == "" || e.Scope.SubKey == subKey)
	}, byCreated), nil
}

// ListByStatus returns every entry with the given status.
func (s *EntryStore) ListByStatus(_ context.Context, status domain.EntryStatus) ([]*domain.ContentEntry, error) {
	return s.filter(func(e *domain.ContentEntry) bool {
		return e.Status == status
	}, byID), nil
}

// AuditLog returns audit records for an entry, most recent first.
func (s *EntryStore) AuditLog(_ context.Context, id string) ([]domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditRecord
	for i := len(s.audits) - 1; i >= 0; i-- {
		if s.audits[i].OverlayID == id {
			out = append(out, s.audits[i])
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *EntryStore) Close() error {
	return nil
}

func (s *EntryStore) appendAudit(a domain.AuditRecord) {
	s.nextID++
	a.ID = s.nextID
	s.audits = append(s.audits, a)
}

func byCreated(a, b *domain.ContentEntry) bool {
	if !a.Lifecycle.CreatedAt.Equal(b.Lifecycle.CreatedAt) {
		return a.Lifecycle.CreatedAt.Before(b.Lifecycle.CreatedAt)
	}
	return a.ID < b.ID
}

func byID(a, b *domain.ContentEntry) bool {
	return a.ID < b.ID
}

func (s *EntryStore) filter(
	keep func(*domain.ContentEntry) bool, less func(a, b *domain.ContentEntry) bool,
) []*domain.ContentEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ContentEntry, 0)
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
