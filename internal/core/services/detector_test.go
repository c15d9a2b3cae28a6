package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func indexedEntry(id, content, title string) *domain.ContentEntry {
	e := &domain.ContentEntry{
		ID:         id,
		Title:      title,
		Status:     domain.StatusActive,
		Content:    content,
		Domain:     domain.DomainFAQ,
		Scope:      domain.Scope{Level: domain.ScopeGroup, DomainKey: "billing", SubKey: domain.SharedSubKey},
		Guardrails: domain.Guardrails{Level: domain.GuardrailLow},
		Version:    domain.EntryVersion{Major: 1},
	}
	RefreshHashes(e)
	return e
}

// seedIndex writes total points for e with the given index-side status.
func seedIndex(t *testing.T, idx *memory.VectorIndex, e *domain.ContentEntry, status domain.EntryStatus, total int) {
	t.Helper()
	payload := domain.NewEntryPayload(e)
	payload.Status = status
	points := make([]domain.IndexPoint, 0, total)
	for i := 0; i < total; i++ {
		points = append(points, domain.IndexPoint{
			OverlayID:  e.ID,
			ChunkIndex: i,
			Vector:     []float32{1, 0},
			Payload:    domain.ChunkPayload{EntryPayload: payload, ChunkIndex: i, TotalChunks: total},
		})
	}
	require.NoError(t, idx.Upsert(context.Background(), points))
}

func TestLoadBaseline(t *testing.T) {
	idx := memory.NewVectorIndex()
	a := indexedEntry("a", "alpha", "A")
	b := indexedEntry("b", "beta", "B")
	seedIndex(t, idx, a, domain.StatusActive, 3)
	seedIndex(t, idx, b, domain.StatusDeprecated, 1)

	baseline, err := NewChangeDetector(idx).LoadBaseline(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, baseline.Len())

	ra, ok := baseline.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, a.ContentHash, ra.ContentHash)
	assert.Equal(t, a.MetadataHash, ra.MetadataHash)
	assert.Equal(t, 3, ra.Chunks)
	assert.Equal(t, 3, ra.TotalChunks)
	assert.Equal(t, domain.StatusActive, ra.Status)

	rb, _ := baseline.Lookup("b")
	assert.Equal(t, domain.StatusDeprecated, rb.Status)
}

func TestLoadBaseline_MixedHashesAreIncomplete(t *testing.T) {
	idx := memory.NewVectorIndex()
	old := indexedEntry("a", "alpha", "A")
	seedIndex(t, idx, old, domain.StatusActive, 3)

	// Chunks 0 and 1 rewritten with new content; chunk 2 still old.
	updated := indexedEntry("a", "omega", "A")
	payload := domain.NewEntryPayload(updated)
	for i := 0; i < 2; i++ {
		require.NoError(t, idx.Upsert(context.Background(), []domain.IndexPoint{{
			OverlayID:  "a",
			ChunkIndex: i,
			Vector:     []float32{1, 0},
			Payload:    domain.ChunkPayload{EntryPayload: payload, ChunkIndex: i, TotalChunks: 3},
		}}))
	}

	baseline, err := NewChangeDetector(idx).LoadBaseline(context.Background())
	require.NoError(t, err)
	rec, ok := baseline.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, updated.ContentHash, rec.ContentHash)
	assert.Equal(t, 3, rec.Chunks)
	assert.True(t, rec.Mixed)

	changes := DetectChanges([]*domain.ContentEntry{updated}, baseline)
	require.Len(t, changes, 1)
	assert.Equal(t, domain.ChangeContentChanged, changes[0].Type)
}

func TestLoadBaseline_ManyPages(t *testing.T) {
	idx := memory.NewVectorIndex()
	for i := 0; i < baselinePageSize+10; i++ {
		e := indexedEntry(string(rune('a'+i%26))+string(rune('a'+i/26)), "x", "t")
		seedIndex(t, idx, e, domain.StatusActive, 1)
	}

	baseline, err := NewChangeDetector(idx).LoadBaseline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, baselinePageSize+10, baseline.Len())
}

func TestDetectChanges_Classification(t *testing.T) {
	unchanged := indexedEntry("none", "same", "Same")
	content := indexedEntry("content", "before", "C")
	meta := indexedEntry("meta", "text", "Before")
	gone := indexedEntry("gone", "bye", "G")
	partial := indexedEntry("partial", "long", "P")

	baseline := domain.NewBaseline([]domain.BaselineRecord{
		record(unchanged, domain.StatusActive),
		record(content, domain.StatusActive),
		record(meta, domain.StatusActive),
		record(gone, domain.StatusActive),
		{OverlayID: "partial", ContentHash: partial.ContentHash, MetadataHash: partial.MetadataHash,
			Status: domain.StatusActive, Chunks: 1, TotalChunks: 2},
	})

	content = indexedEntry("content", "after", "C")
	meta = indexedEntry("meta", "text", "After")
	added := indexedEntry("added", "new", "N")

	results := DetectChanges([]*domain.ContentEntry{unchanged, content, meta, added, partial}, baseline)

	got := map[string]domain.ChangeType{}
	for _, r := range results {
		got[r.OverlayID] = r.Type
	}
	assert.Equal(t, map[string]domain.ChangeType{
		"none":    domain.ChangeNone,
		"content": domain.ChangeContentChanged,
		"meta":    domain.ChangeMetadataOnly,
		"added":   domain.ChangeNew,
		"gone":    domain.ChangeDeleted,
		"partial": domain.ChangeContentChanged,
	}, got)

	last := results[len(results)-1]
	assert.Equal(t, "gone", last.OverlayID)
	assert.Nil(t, last.Entry)
	require.NotNil(t, last.Previous)
}

func TestDetectChanges_DeprecatedBaselineNotDeletedTwice(t *testing.T) {
	e := indexedEntry("a", "x", "A")
	baseline := domain.NewBaseline([]domain.BaselineRecord{record(e, domain.StatusDeprecated)})

	assert.Empty(t, DetectChanges(nil, baseline))
}

func TestDetectChanges_Reactivation(t *testing.T) {
	e := indexedEntry("a", "x", "A")
	baseline := domain.NewBaseline([]domain.BaselineRecord{record(e, domain.StatusDeprecated)})

	results := DetectChanges([]*domain.ContentEntry{e}, baseline)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChangeMetadataOnly, results[0].Type)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]domain.ChangeResult{
		{Type: domain.ChangeNew},
		{Type: domain.ChangeContentChanged},
		{Type: domain.ChangeMetadataOnly},
		{Type: domain.ChangeNone},
		{Type: domain.ChangeNone},
	})

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.RequiresReEmbed)
	assert.Equal(t, 2, s.Count(domain.ChangeNone))
	assert.Equal(t, 3, s.Pending())
}

func record(e *domain.ContentEntry, status domain.EntryStatus) domain.BaselineRecord {
	return domain.BaselineRecord{
		OverlayID:    e.ID,
		ContentHash:  e.ContentHash,
		MetadataHash: e.MetadataHash,
		Status:       status,
		Chunks:       1,
		TotalChunks:  1,
	}
}
