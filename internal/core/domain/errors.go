package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied indicates a destructive operation was attempted
	// without the required confirmation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCompileInProgress indicates a compile is already running.
	ErrCompileInProgress = errors.New("compile in progress")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// FieldProblem is one failed validation rule.
type FieldProblem struct {
	Field string
	Rule  string
}

// ValidationError reports malformed entry input. It unwraps to ErrInvalidInput.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = fmt.Sprintf("%s (%s)", p.Field, p.Rule)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Problems: []FieldProblem{{Field: field, Rule: rule}}}
}

// NotFoundError wraps ErrNotFound with the overlay id.
func NotFoundError(id string) error {
	return fmt.Errorf("overlay %s: %w", id, ErrNotFound)
}

// EmbeddingBatchError records a failed embedding batch. The compile records
// it and carries on.
type EmbeddingBatchError struct {
	Batch      int
	Batches    int
	OverlayIDs []string
	Cause      error
}

func (e *EmbeddingBatchError) Error() string {
	return fmt.Sprintf("embedding batch %d/%d failed (%d entries): %v",
		e.Batch, e.Batches, len(e.OverlayIDs), e.Cause)
}

func (e *EmbeddingBatchError) Unwrap() error {
	return e.Cause
}

// IndexWriteError records an index write that failed after retries.
// It stops the remaining writes of the compile.
type IndexWriteError struct {
	Operation OperationKind
	OverlayID string
	Cause     error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index %s for %s failed: %v", e.Operation, e.OverlayID, e.Cause)
}

func (e *IndexWriteError) Unwrap() error {
	return e.Cause
}

// CompilationFatalError reports a failure while loading compile state.
type CompilationFatalError struct {
	Stage string
	Cause error
}

func (e *CompilationFatalError) Error() string {
	return fmt.Sprintf("compile aborted while %s: %v", e.Stage, e.Cause)
}

func (e *CompilationFatalError) Unwrap() error {
	return e.Cause
}
