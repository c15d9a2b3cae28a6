package domain

import (
	"fmt"
	"time"
)

// EntryStatus is the publication state of a ContentEntry.
type EntryStatus string

// Entry statuses. Only active entries are visible to the compiler and search.
const (
	StatusDraft      EntryStatus = "draft"
	StatusActive     EntryStatus = "active"
	StatusDeprecated EntryStatus = "deprecated"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusDeprecated:
		return true
	}
	return false
}

// Domain is a top-level classification bucket. The set is closed.
type Domain string

// Known domains.
const (
	DomainIdentity     Domain = "identity"
	DomainKnowledge    Domain = "knowledge"
	DomainBehaviour    Domain = "behaviour"
	DomainVoice        Domain = "voice"
	DomainPolicy       Domain = "policy"
	DomainProcedure    Domain = "procedure"
	DomainReference    Domain = "reference"
	DomainGlossary     Domain = "glossary"
	DomainFAQ          Domain = "faq"
	DomainCapability   Domain = "capability"
	DomainRelationship Domain = "relationship"
	DomainSystem       Domain = "system"
)

// Domains returns every known domain in declaration order.
func Domains() []Domain {
	return []Domain{
		DomainIdentity, DomainKnowledge, DomainBehaviour, DomainVoice,
		DomainPolicy, DomainProcedure, DomainReference, DomainGlossary,
		DomainFAQ, DomainCapability, DomainRelationship, DomainSystem,
	}
}

// IsValid reports whether d is one of the known domains.
func (d Domain) IsValid() bool {
	for _, known := range Domains() {
		if d == known {
			return true
		}
	}
	return false
}

// ScopeLevel places an entry at group or individual level.
type ScopeLevel string

// Scope levels.
const (
	ScopeGroup      ScopeLevel = "group"
	ScopeIndividual ScopeLevel = "individual"
)

// IsValid reports whether l is a known scope level.
func (l ScopeLevel) IsValid() bool {
	return l == ScopeGroup || l == ScopeIndividual
}

// SharedSubKey marks content inherited by every individual under a domain key.
const SharedSubKey = "_shared"

// Scope defines where an entry sits in the inheritance tree.
type Scope struct {
	Level     ScopeLevel `json:"level" yaml:"level" validate:"scope_level"`
	DomainKey string     `json:"domain_key" yaml:"domain_key" validate:"required,max=128"`
	SubKey    string     `json:"sub_key" yaml:"sub_key" validate:"required,max=128"`
}

// IsShared reports whether the scope is the shared pseudo-individual.
func (s Scope) IsShared() bool {
	return s.SubKey == SharedSubKey
}

// Associations are informational cross-references used for index-side
// filtering. They are never embedded as text.
type Associations struct {
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Roles        []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Models       []string `json:"models,omitempty" yaml:"models,omitempty"`
	Languages    []string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// GuardrailLevel is a policy-filterable attribute, orthogonal to content.
type GuardrailLevel string

// Guardrail levels.
const (
	GuardrailLow    GuardrailLevel = "low"
	GuardrailMedium GuardrailLevel = "medium"
	GuardrailHigh   GuardrailLevel = "high"
)

// IsValid reports whether g is a known guardrail level.
func (g GuardrailLevel) IsValid() bool {
	switch g {
	case GuardrailLow, GuardrailMedium, GuardrailHigh:
		return true
	}
	return false
}

// Guardrails holds policy attributes for an entry.
type Guardrails struct {
	Level GuardrailLevel `json:"level" yaml:"level" validate:"guardrail_level"`
}

// EntryVersion tracks content (major) and metadata (minor) revisions.
type EntryVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// String renders the version as "v<major>.<minor>".
func (v EntryVersion) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// BumpMajor returns the version after a content change.
func (v EntryVersion) BumpMajor() EntryVersion {
	return EntryVersion{Major: v.Major + 1, Minor: 0}
}

// BumpMinor returns the version after a metadata-only change.
func (v EntryVersion) BumpMinor() EntryVersion {
	return EntryVersion{Major: v.Major, Minor: v.Minor + 1}
}

// Lifecycle records timestamps and supersession.
type Lifecycle struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Supersedes *string   `json:"supersedes,omitempty"`
}

// ContentEntry is the canonical unit of overlay knowledge.
type ContentEntry struct {
	// ID is assigned at creation and never changes.
	ID string `json:"overlay_id"`

	Title   string      `json:"title"`
	Status  EntryStatus `json:"status"`
	Content string      `json:"content"`
	Domain  Domain      `json:"domain"`
	Scope   Scope       `json:"scope"`

	Associations Associations `json:"associations"`
	Guardrails   Guardrails   `json:"guardrails"`
	Version      EntryVersion `json:"version"`
	Lifecycle    Lifecycle    `json:"lifecycle"`

	// AuthoringNotes is free text for authors. It is never sent to the index.
	AuthoringNotes string `json:"authoring_notes,omitempty"`

	// ContentHash is computed from Content alone.
	ContentHash string `json:"content_hash"`

	// MetadataHash is computed from every indexed field except Content.
	MetadataHash string `json:"metadata_hash"`
}

// FullPath returns domain/domain_key/sub_key.
func (e *ContentEntry) FullPath() string {
	return fmt.Sprintf("%s/%s/%s", e.Domain, e.Scope.DomainKey, e.Scope.SubKey)
}

// IsActive reports whether the entry is published.
func (e *ContentEntry) IsActive() bool {
	return e.Status == StatusActive
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (e *ContentEntry) Clone() *ContentEntry {
	c := *e
	c.Associations = Associations{
		Capabilities: cloneStrings(e.Associations.Capabilities),
		Roles:        cloneStrings(e.Associations.Roles),
		Models:       cloneStrings(e.Associations.Models),
		Languages:    cloneStrings(e.Associations.Languages),
	}
	if e.Lifecycle.Supersedes != nil {
		s := *e.Lifecycle.Supersedes
		c.Lifecycle.Supersedes = &s
	}
	return &c
}

// EntryInput is the authored shape accepted by create and supersede.
type EntryInput struct {
	Title          string       `json:"title" yaml:"title" validate:"required,min=1,max=255"`
	Status         EntryStatus  `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,overlay_status"`
	Content        string       `json:"content" yaml:"content" validate:"required,min=1"`
	Domain         Domain       `json:"domain" yaml:"domain" validate:"overlay_domain"`
	Scope          Scope        `json:"scope" yaml:"scope"`
	Associations   Associations `json:"associations" yaml:"associations"`
	Guardrails     Guardrails   `json:"guardrails" yaml:"guardrails"`
	AuthoringNotes string       `json:"authoring_notes,omitempty" yaml:"authoring_notes,omitempty"`
}

// MetadataPatch is a partial update. Nil fields are left untouched.
type MetadataPatch struct {
	Title          *string       `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Domain         *Domain       `json:"domain,omitempty" validate:"omitempty,overlay_domain"`
	Scope          *Scope        `json:"scope,omitempty"`
	Associations   *Associations `json:"associations,omitempty"`
	Guardrails     *Guardrails   `json:"guardrails,omitempty"`
	AuthoringNotes *string       `json:"authoring_notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p MetadataPatch) IsEmpty() bool {
	return p.Title == nil && p.Domain == nil && p.Scope == nil &&
		p.Associations == nil && p.Guardrails == nil && p.AuthoringNotes == nil
}

// Apply writes the non-nil fields of p onto e.
func (p MetadataPatch) Apply(e *ContentEntry) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Domain != nil {
		e.Domain = *p.Domain
	}
	if p.Scope != nil {
		e.Scope = *p.Scope
	}
	if p.Associations != nil {
		e.Associations = *p.Associations
	}
	if p.Guardrails != nil {
		e.Guardrails = *p.Guardrails
	}
	if p.AuthoringNotes != nil {
		e.AuthoringNotes = *p.AuthoringNotes
	}
}

// HardDeleteToken returns the confirmation string required to hard delete id.
func HardDeleteToken(id string) string {
	return "DELETE_PERMANENTLY_" + id
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
