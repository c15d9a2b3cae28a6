package driven

import (
	"time"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// CompileObserver receives compile telemetry.
type CompileObserver interface {
	// ObserveChanges records the classification counts of a compile.
	ObserveChanges(summary domain.ChangeSummary)

	// ObserveEmbedding records one embedding batch.
	ObserveEmbedding(texts int, elapsed time.Duration, err error)

	// ObserveOperation records one executed index operation.
	ObserveOperation(kind domain.OperationKind, err error)

	// ObserveCompile records the end of a compile.
	ObserveCompile(result *domain.CompilationResult)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) ObserveChanges(domain.ChangeSummary)          {}
func (NopObserver) ObserveEmbedding(int, time.Duration, error)   {}
func (NopObserver) ObserveOperation(domain.OperationKind, error) {}
func (NopObserver) ObserveCompile(*domain.CompilationResult)     {}
