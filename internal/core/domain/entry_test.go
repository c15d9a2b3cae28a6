package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomain_IsValid(t *testing.T) {
	for _, d := range Domains() {
		assert.True(t, d.IsValid(), d)
	}
	assert.Len(t, Domains(), 12)
	assert.False(t, Domain("marketing").IsValid())
	assert.False(t, Domain("").IsValid())
}

func TestEntryStatus_IsValid(t *testing.T) {
	assert.True(t, StatusDraft.IsValid())
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusDeprecated.IsValid())
	assert.False(t, EntryStatus("archived").IsValid())
}

func TestScopeLevel_IsValid(t *testing.T) {
	assert.True(t, ScopeGroup.IsValid())
	assert.True(t, ScopeIndividual.IsValid())
	assert.False(t, ScopeLevel("team").IsValid())
}

func TestGuardrailLevel_IsValid(t *testing.T) {
	assert.True(t, GuardrailHigh.IsValid())
	assert.False(t, GuardrailLevel("extreme").IsValid())
}

func TestEntryVersion(t *testing.T) {
	v := EntryVersion{Major: 2, Minor: 3}

	assert.Equal(t, "v2.3", v.String())
	assert.Equal(t, EntryVersion{Major: 3, Minor: 0}, v.BumpMajor())
	assert.Equal(t, EntryVersion{Major: 2, Minor: 4}, v.BumpMinor())
}

func TestContentEntry_FullPath(t *testing.T) {
	e := &ContentEntry{
		Domain: DomainVoice,
		Scope:  Scope{Level: ScopeIndividual, DomainKey: "support", SubKey: "alice"},
	}
	assert.Equal(t, "voice/support/alice", e.FullPath())
	assert.False(t, e.Scope.IsShared())

	e.Scope.SubKey = SharedSubKey
	assert.True(t, e.Scope.IsShared())
}

func TestContentEntry_Clone(t *testing.T) {
	prev := "old-id"
	e := &ContentEntry{
		ID:           "new-id",
		Associations: Associations{Roles: []string{"agent"}},
		Lifecycle:    Lifecycle{Supersedes: &prev},
	}

	c := e.Clone()
	c.Associations.Roles[0] = "changed"
	*c.Lifecycle.Supersedes = "changed"

	assert.Equal(t, "agent", e.Associations.Roles[0])
	assert.Equal(t, "old-id", *e.Lifecycle.Supersedes)
	assert.Equal(t, e.ID, c.ID)
}

func TestMetadataPatch(t *testing.T) {
	assert.True(t, MetadataPatch{}.IsEmpty())

	title := "Renamed"
	level := Guardrails{Level: GuardrailHigh}
	p := MetadataPatch{Title: &title, Guardrails: &level}
	assert.False(t, p.IsEmpty())

	e := &ContentEntry{Title: "Original", Content: "body", Guardrails: Guardrails{Level: GuardrailLow}}
	p.Apply(e)

	assert.Equal(t, "Renamed", e.Title)
	assert.Equal(t, GuardrailHigh, e.Guardrails.Level)
	assert.Equal(t, "body", e.Content)
}

func TestHardDeleteToken(t *testing.T) {
	assert.Equal(t, "DELETE_PERMANENTLY_abc", HardDeleteToken("abc"))
}
