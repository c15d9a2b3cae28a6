package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.BuildVersionStore = (*VersionStore)(nil)

// VersionStore keeps the build version in memory.
type VersionStore struct {
	mu      sync.RWMutex
	version *domain.BuildVersion
	saves   int
}

// NewVersionStore creates an empty version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{}
}

// Current returns the stored version or the initial version.
func (s *VersionStore) Current(_ context.Context) (domain.BuildVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.version == nil {
		return domain.InitialBuildVersion, nil
	}
	return *s.version, nil
}

// Save stores v.
func (s *VersionStore) Save(_ context.Context, v domain.BuildVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = &v
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *VersionStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
