package driving

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// Compiler synchronises the vector index with the active overlay entries.
type Compiler interface {
	// Compile runs one incremental compile. The result is always non-nil.
	// The error is set only when the compile could not load its inputs or
	// another compile holds the lock.
	Compile(ctx context.Context, opts domain.CompileOptions) (*domain.CompilationResult, error)

	// CompileEntries force-upserts the given entries regardless of baseline.
	CompileEntries(ctx context.Context, ids []string, opts domain.CompileOptions) (*domain.CompilationResult, error)

	// Status previews the next compile without writing anything.
	Status(ctx context.Context) (*domain.CompileStatus, error)
}
