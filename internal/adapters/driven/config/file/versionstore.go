package file

import (
	"context"
	"fmt"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// KeyBuildVersion is the config key holding the current build version.
const KeyBuildVersion = "build.version"

// Ensure VersionStore implements the interface.
var _ driven.BuildVersionStore = (*VersionStore)(nil)

// VersionStore persists the build version as a config value.
type VersionStore struct {
	config driven.ConfigStore
}

// NewVersionStore creates a version store backed by config.
func NewVersionStore(config driven.ConfigStore) *VersionStore {
	return &VersionStore{config: config}
}

// Current returns the stored version, or the initial version when none has
// been saved. A malformed stored value is an error rather than a reset.
func (s *VersionStore) Current(_ context.Context) (domain.BuildVersion, error) {
	raw := s.config.GetString(KeyBuildVersion)
	if raw == "" {
		return domain.InitialBuildVersion, nil
	}
	v, err := domain.ParseBuildVersion(raw)
	if err != nil {
		return domain.BuildVersion{}, fmt.Errorf("%s in %s: %w", KeyBuildVersion, s.config.Path(), err)
	}
	return v, nil
}

// Save persists v immediately.
func (s *VersionStore) Save(_ context.Context, v domain.BuildVersion) error {
	if err := s.config.Set(KeyBuildVersion, v.String()); err != nil {
		return fmt.Errorf("save %s: %w", KeyBuildVersion, err)
	}
	return nil
}
