package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEntryPayload(t *testing.T) {
	prev := "old"
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &ContentEntry{
		ID:             "new",
		Title:          "Tone",
		Status:         StatusActive,
		Content:        "Speak plainly.",
		Domain:         DomainVoice,
		Scope:          Scope{Level: ScopeGroup, DomainKey: "support", SubKey: SharedSubKey},
		Guardrails:     Guardrails{Level: GuardrailMedium},
		Version:        EntryVersion{Major: 2, Minor: 1},
		Lifecycle:      Lifecycle{CreatedAt: now, UpdatedAt: now, Supersedes: &prev},
		AuthoringNotes: "internal only",
		ContentHash:    "ch",
		MetadataHash:   "mh",
	}

	p := NewEntryPayload(e)

	assert.Equal(t, PayloadSchemaVersion, p.SchemaVersion)
	assert.Equal(t, "new", p.OverlayID)
	assert.Equal(t, "voice/support/_shared", p.FullPath)
	assert.Equal(t, "v2.1", p.Version)
	assert.Equal(t, "old", p.Supersedes)
	assert.Equal(t, []string{}, p.Roles)
	assert.False(t, p.IsPlaceholder)
}

func TestOperationKind_String(t *testing.T) {
	assert.Equal(t, "upsert", OpUpsert.String())
	assert.Equal(t, "update_payload", OpUpdatePayload.String())
	assert.Equal(t, "soft_delete", OpSoftDelete.String())
	assert.Equal(t, "unknown", OperationKind(0).String())
}

func TestIndexFilter_And(t *testing.T) {
	f := IndexFilter{Must: []FieldCondition{Match(FieldDomain, "voice")}}
	combined := PublishedFilter().And(f)

	assert.Len(t, combined.Must, 2)
	assert.Len(t, combined.MustNot, 1)
	assert.Equal(t, FieldStatus, combined.Must[0].Key)
	assert.Equal(t, FieldDomain, combined.Must[1].Key)
	assert.True(t, IndexFilter{}.IsEmpty())
	assert.False(t, combined.IsEmpty())
}

func TestFieldConditionHelpers(t *testing.T) {
	anyOf := MatchAny(FieldSubKey, "alice", SharedSubKey)
	assert.Equal(t, []string{"alice", SharedSubKey}, anyOf.AnyOf)

	lower := AtLeast(FieldChunkIndex, 3)
	if assert.NotNil(t, lower.MinInt) {
		assert.Equal(t, 3, *lower.MinInt)
	}
}

func TestCompileOptions_Normalised(t *testing.T) {
	o := CompileOptions{}.Normalised()
	assert.Equal(t, DefaultBatchSize, o.BatchSize)
	assert.Equal(t, 1, o.Concurrency)

	o = CompileOptions{BatchSize: 3, Concurrency: 4}.Normalised()
	assert.Equal(t, 3, o.BatchSize)
	assert.Equal(t, 4, o.Concurrency)
}
