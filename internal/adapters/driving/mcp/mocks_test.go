package mcp

import (
	"context"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	query   string
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.query = query
	m.opts = opts
	return m.results, m.err
}

func (m *mockSearchService) Browse(_ context.Context, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.opts = opts
	return m.results, m.err
}

// mockCompiler is a mock implementation of driving.Compiler.
type mockCompiler struct {
	status *domain.CompileStatus
	err    error
}

func (m *mockCompiler) Compile(_ context.Context, _ domain.CompileOptions) (*domain.CompilationResult, error) {
	return &domain.CompilationResult{}, m.err
}

func (m *mockCompiler) CompileEntries(_ context.Context, _ []string, _ domain.CompileOptions) (*domain.CompilationResult, error) {
	return &domain.CompilationResult{}, m.err
}

func (m *mockCompiler) Status(_ context.Context) (*domain.CompileStatus, error) {
	return m.status, m.err
}

// mockEntryService implements only Get; other methods panic via the nil
// embedded interface.
type mockEntryService struct {
	driving.EntryService
	entries map[string]*domain.ContentEntry
}

func (m *mockEntryService) Get(_ context.Context, id string) (*domain.ContentEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, domain.NotFoundError(id)
	}
	return e, nil
}
