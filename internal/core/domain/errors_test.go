package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrPermissionDenied", ErrPermissionDenied},
		{"ErrCompileInProgress", ErrCompileInProgress},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}

func TestNotFoundError_Wraps(t *testing.T) {
	err := NotFoundError("abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "abc")
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Problems: []FieldProblem{
		{Field: "title", Rule: "required"},
		{Field: "domain", Rule: "overlay_domain"},
	}}

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: title (required), domain (overlay_domain)", err.Error())

	var wrapped error = fmt.Errorf("create: %w", err)
	var ve *ValidationError
	require.True(t, errors.As(wrapped, &ve))
	assert.Len(t, ve.Problems, 2)
}

func TestValidationError_Empty(t *testing.T) {
	err := &ValidationError{}
	assert.Equal(t, "invalid input", err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("content", "required")
	require.Len(t, err.Problems, 1)
	assert.Equal(t, "content", err.Problems[0].Field)
}

func TestEmbeddingBatchError(t *testing.T) {
	cause := errors.New("rate limited")
	err := &EmbeddingBatchError{Batch: 2, Batches: 3, OverlayIDs: []string{"a", "b"}, Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "embedding batch 2/3 failed (2 entries): rate limited", err.Error())
}

func TestIndexWriteError(t *testing.T) {
	err := &IndexWriteError{Operation: OpSoftDelete, OverlayID: "x", Cause: ErrVectorIndexUnavailable}

	assert.ErrorIs(t, err, ErrVectorIndexUnavailable)
	assert.Contains(t, err.Error(), "soft_delete")
	assert.Contains(t, err.Error(), "x")
}

func TestCompilationFatalError(t *testing.T) {
	err := &CompilationFatalError{Stage: "loading entries", Cause: ErrNotFound}

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "compile aborted while loading entries: not found", err.Error())
}
