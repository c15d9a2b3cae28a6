package driven

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// BuildVersionStore persists the compile build version.
type BuildVersionStore interface {
	// Current returns the stored version, or domain.InitialBuildVersion when
	// none has been written yet.
	Current(ctx context.Context) (domain.BuildVersion, error)

	// Save stores v.
	Save(ctx context.Context, v domain.BuildVersion) error
}
