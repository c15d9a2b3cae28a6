package domain

import "time"

// PayloadSchemaVersion is written into every index payload.
// Bump it when a payload field is added, renamed or removed.
const PayloadSchemaVersion = 1

// Payload field names shared by the compiler, the search filters and the
// index adapters.
const (
	FieldOverlayID     = "overlay_id"
	FieldContentHash   = "content_hash"
	FieldMetadataHash  = "metadata_hash"
	FieldStatus        = "status"
	FieldIsPlaceholder = "is_placeholder"
	FieldDomain        = "domain"
	FieldDomainKey     = "domain_key"
	FieldSubKey        = "sub_key"
	FieldGuardrail     = "guardrail_level"
	FieldChunkIndex    = "chunk_index"
	FieldTotalChunks   = "total_chunks"
)

// EntryPayload holds the entry-level payload fields. These are the fields a
// metadata-only update rewrites on every point of an overlay.
type EntryPayload struct {
	SchemaVersion  int            `json:"schema_version"`
	OverlayID      string         `json:"overlay_id"`
	ContentHash    string         `json:"content_hash"`
	MetadataHash   string         `json:"metadata_hash"`
	Title          string         `json:"title"`
	Status         EntryStatus    `json:"status"`
	IsPlaceholder  bool           `json:"is_placeholder"`
	Domain         Domain         `json:"domain"`
	ScopeLevel     ScopeLevel     `json:"scope_level"`
	DomainKey      string         `json:"domain_key"`
	SubKey         string         `json:"sub_key"`
	FullPath       string         `json:"full_path"`
	GuardrailLevel GuardrailLevel `json:"guardrail_level"`
	Capabilities   []string       `json:"capabilities"`
	Roles          []string       `json:"roles"`
	Models         []string       `json:"models"`
	Languages      []string       `json:"languages"`
	Version        string         `json:"version"`
	Supersedes     string         `json:"supersedes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ChunkPayload is the full payload of one point.
type ChunkPayload struct {
	EntryPayload
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// NewEntryPayload builds the entry-level payload. AuthoringNotes and Content
// are not part of it.
func NewEntryPayload(e *ContentEntry) EntryPayload {
	p := EntryPayload{
		SchemaVersion:  PayloadSchemaVersion,
		OverlayID:      e.ID,
		ContentHash:    e.ContentHash,
		MetadataHash:   e.MetadataHash,
		Title:          e.Title,
		Status:         e.Status,
		Domain:         e.Domain,
		ScopeLevel:     e.Scope.Level,
		DomainKey:      e.Scope.DomainKey,
		SubKey:         e.Scope.SubKey,
		FullPath:       e.FullPath(),
		GuardrailLevel: e.Guardrails.Level,
		Capabilities:   nonNil(e.Associations.Capabilities),
		Roles:          nonNil(e.Associations.Roles),
		Models:         nonNil(e.Associations.Models),
		Languages:      nonNil(e.Associations.Languages),
		Version:        e.Version.String(),
		CreatedAt:      e.Lifecycle.CreatedAt,
		UpdatedAt:      e.Lifecycle.UpdatedAt,
	}
	if e.Lifecycle.Supersedes != nil {
		p.Supersedes = *e.Lifecycle.Supersedes
	}
	return p
}

// IndexPoint is one vector with its payload.
type IndexPoint struct {
	OverlayID  string
	ChunkIndex int
	Vector     []float32
	Payload    ChunkPayload
}

// OperationKind is the kind of index write the compiler issues.
type OperationKind int

// Operation kinds.
const (
	OpUpsert OperationKind = iota + 1
	OpUpdatePayload
	OpSoftDelete
)

// String returns the wire name of the operation kind.
func (k OperationKind) String() string {
	switch k {
	case OpUpsert:
		return "upsert"
	case OpUpdatePayload:
		return "update_payload"
	case OpSoftDelete:
		return "soft_delete"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k OperationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IndexOperation is one planned write for one overlay.
type IndexOperation struct {
	Kind      OperationKind
	OverlayID string
	Change    ChangeType

	// Points is set for OpUpsert.
	Points []IndexPoint

	// Payload is set for OpUpdatePayload.
	Payload *EntryPayload
}

// FieldCondition matches one payload field. Exactly one of Value, AnyOf or
// MinInt is expected to be set.
type FieldCondition struct {
	Key    string
	Value  any
	AnyOf  []string
	MinInt *int
}

// Match returns an equality condition.
func Match(key string, value any) FieldCondition {
	return FieldCondition{Key: key, Value: value}
}

// MatchAny returns a condition matching any of values.
func MatchAny(key string, values ...string) FieldCondition {
	return FieldCondition{Key: key, AnyOf: values}
}

// AtLeast returns an integer lower-bound condition.
func AtLeast(key string, lower int) FieldCondition {
	return FieldCondition{Key: key, MinInt: &lower}
}

// IndexFilter is a conjunction of Must conditions and negated MustNot
// conditions.
type IndexFilter struct {
	Must    []FieldCondition
	MustNot []FieldCondition
}

// IsEmpty reports whether the filter matches everything.
func (f IndexFilter) IsEmpty() bool {
	return len(f.Must) == 0 && len(f.MustNot) == 0
}

// And returns a filter requiring both f and other.
func (f IndexFilter) And(other IndexFilter) IndexFilter {
	out := IndexFilter{
		Must:    make([]FieldCondition, 0, len(f.Must)+len(other.Must)),
		MustNot: make([]FieldCondition, 0, len(f.MustNot)+len(other.MustNot)),
	}
	out.Must = append(append(out.Must, f.Must...), other.Must...)
	out.MustNot = append(append(out.MustNot, f.MustNot...), other.MustNot...)
	return out
}

// PublishedFilter excludes everything a reader must never see.
func PublishedFilter() IndexFilter {
	return IndexFilter{
		Must:    []FieldCondition{Match(FieldStatus, string(StatusActive))},
		MustNot: []FieldCondition{Match(FieldIsPlaceholder, true)},
	}
}

// StoredPoint is a point read back from the index.
type StoredPoint struct {
	ID      string
	Payload map[string]any
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// ScrollPage is one page of a scroll.
type ScrollPage struct {
	Points []StoredPoint

	// NextOffset is empty when the scroll is exhausted.
	NextOffset string
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
