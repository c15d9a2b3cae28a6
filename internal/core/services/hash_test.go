package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func hashFixture() *domain.ContentEntry {
	return &domain.ContentEntry{
		ID:         "e1",
		Title:      "Welcome",
		Status:     domain.StatusActive,
		Content:    "Hello there.",
		Domain:     domain.DomainVoice,
		Scope:      domain.Scope{Level: domain.ScopeIndividual, DomainKey: "support", SubKey: "alice"},
		Guardrails: domain.Guardrails{Level: domain.GuardrailMedium},
		Associations: domain.Associations{
			Roles: []string{"agent", "lead"},
		},
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	assert.Len(t, ContentHash("abc"), 64)
}

func TestContentHash_DomainSeparated(t *testing.T) {
	assert.NotEqual(t, ContentHash(""), hashWithDomain(metadataHashDomain, nil))
}

func TestHashSeparation(t *testing.T) {
	base := hashFixture()
	RefreshHashes(base)

	tests := []struct {
		name          string
		mutate        func(e *domain.ContentEntry)
		contentChange bool
		metaChange    bool
	}{
		{"content", func(e *domain.ContentEntry) { e.Content = "Hi." }, true, false},
		{"title", func(e *domain.ContentEntry) { e.Title = "Hello" }, false, true},
		{"domain", func(e *domain.ContentEntry) { e.Domain = domain.DomainPolicy }, false, true},
		{"sub key", func(e *domain.ContentEntry) { e.Scope.SubKey = "bob" }, false, true},
		{"guardrails", func(e *domain.ContentEntry) { e.Guardrails.Level = domain.GuardrailHigh }, false, true},
		{"roles", func(e *domain.ContentEntry) { e.Associations.Roles = []string{"agent"} }, false, true},
		{"status", func(e *domain.ContentEntry) { e.Status = domain.StatusDraft }, false, false},
		{"notes", func(e *domain.ContentEntry) { e.AuthoringNotes = "todo" }, false, false},
		{"version", func(e *domain.ContentEntry) { e.Version.Minor = 9 }, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base.Clone()
			tt.mutate(e)
			RefreshHashes(e)

			assert.Equal(t, tt.contentChange, e.ContentHash != base.ContentHash)
			assert.Equal(t, tt.metaChange, e.MetadataHash != base.MetadataHash)
		})
	}
}

func TestMetadataHash_AssociationOrderIgnored(t *testing.T) {
	a := hashFixture()
	b := hashFixture()
	b.Associations.Roles = []string{"lead", "agent"}

	assert.Equal(t, MetadataHash(a), MetadataHash(b))
}

func TestMetadataHash_UnicodeNormalised(t *testing.T) {
	a := hashFixture()
	b := hashFixture()
	a.Title = "Caf\u00e9"
	b.Title = "Cafe\u0301"

	assert.Equal(t, MetadataHash(a), MetadataHash(b))
}

func TestMetadataHash_Supersedes(t *testing.T) {
	a := hashFixture()
	b := hashFixture()
	prev := "old"
	b.Lifecycle.Supersedes = &prev

	assert.NotEqual(t, MetadataHash(a), MetadataHash(b))
}
