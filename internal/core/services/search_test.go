package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// searchIndexFixture indexes four chunks covering every visibility rule.
func searchIndexFixture(t *testing.T) *memory.VectorIndex {
	t.Helper()
	idx := memory.NewVectorIndex()

	add := func(id, subKey string, status domain.EntryStatus, guard domain.GuardrailLevel, vec []float32) {
		e := indexedEntry(id, "text of "+id, "Title "+id)
		e.Scope.SubKey = subKey
		e.Guardrails.Level = guard
		payload := domain.NewEntryPayload(e)
		payload.Status = status
		require.NoError(t, idx.Upsert(context.Background(), []domain.IndexPoint{{
			OverlayID: id,
			Vector:    vec,
			Payload: domain.ChunkPayload{
				EntryPayload: payload, TotalChunks: 1, Text: e.Content,
			},
		}}))
	}

	add("shared", domain.SharedSubKey, domain.StatusActive, domain.GuardrailLow, []float32{1, 0})
	add("alice", "alice", domain.StatusActive, domain.GuardrailHigh, []float32{0.9, 0.1})
	add("bob", "bob", domain.StatusActive, domain.GuardrailLow, []float32{0, 1})
	add("old", domain.SharedSubKey, domain.StatusDeprecated, domain.GuardrailLow, []float32{1, 0})
	return idx
}

type fixedEmbedder struct {
	fakeEmbedder
	vector []float32
	err    error
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

func TestSearchService_RanksPublishedOnly(t *testing.T) {
	svc := NewSearchService(searchIndexFixture(t), &fixedEmbedder{vector: []float32{1, 0}})

	results, err := svc.Search(context.Background(), "greeting", domain.SearchOptions{})
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.OverlayID
	}
	assert.Equal(t, []string{"shared", "alice", "bob"}, ids)
	assert.Equal(t, "Title shared", results[0].Title)
	assert.Equal(t, "faq/billing/_shared", results[0].FullPath)
	assert.Equal(t, "text of shared", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchService_Filters(t *testing.T) {
	svc := NewSearchService(searchIndexFixture(t), &fixedEmbedder{vector: []float32{1, 0}})
	ctx := context.Background()

	tests := []struct {
		name string
		opts domain.SearchOptions
		want []string
	}{
		{"sub keys", domain.SearchOptions{SubKeys: []string{"alice", domain.SharedSubKey}}, []string{"shared", "alice"}},
		{"guardrails", domain.SearchOptions{Guardrails: []domain.GuardrailLevel{domain.GuardrailHigh}}, []string{"alice"}},
		{"domain key", domain.SearchOptions{DomainKey: "other"}, []string{}},
		{"domain", domain.SearchOptions{Domain: domain.DomainFAQ, Limit: 1}, []string{"shared"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.Search(ctx, "q", tt.opts)
			require.NoError(t, err)
			ids := make([]string, 0, len(results))
			for _, r := range results {
				ids = append(ids, r.OverlayID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc := NewSearchService(nil, nil)

	results, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_Unavailable(t *testing.T) {
	ctx := context.Background()

	_, err := NewSearchService(nil, &fixedEmbedder{}).Search(ctx, "q", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = NewSearchService(memory.NewVectorIndex(), nil).Search(ctx, "q", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = NewSearchService(nil, nil).Browse(ctx, domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestSearchService_EmbedError(t *testing.T) {
	svc := NewSearchService(memory.NewVectorIndex(), &fixedEmbedder{err: errors.New("quota")})

	_, err := svc.Search(context.Background(), "q", domain.SearchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestSearchService_Browse(t *testing.T) {
	svc := NewSearchService(searchIndexFixture(t), nil)
	ctx := context.Background()

	results, err := svc.Browse(ctx, domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotEqual(t, "old", r.OverlayID)
		assert.Zero(t, r.Score)
	}

	results, err = svc.Browse(ctx, domain.SearchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
