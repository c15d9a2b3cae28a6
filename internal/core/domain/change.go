package domain

import (
	"fmt"
	"sort"
)

// ChangeType classifies an entry against the index baseline.
type ChangeType int

// Change classifications. The zero value is deliberately invalid so an
// unclassified result is never mistaken for "none".
const (
	ChangeNew ChangeType = iota + 1
	ChangeContentChanged
	ChangeMetadataOnly
	ChangeNone
	ChangeDeleted
)

// ChangeTypes returns every classification in report order.
func ChangeTypes() []ChangeType {
	return []ChangeType{ChangeNew, ChangeContentChanged, ChangeMetadataOnly, ChangeNone, ChangeDeleted}
}

// String returns the wire name of the classification.
func (c ChangeType) String() string {
	switch c {
	case ChangeNew:
		return "new"
	case ChangeContentChanged:
		return "content_changed"
	case ChangeMetadataOnly:
		return "metadata_only"
	case ChangeNone:
		return "none"
	case ChangeDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(c))
	}
}

// MarshalText renders the classification by its wire name.
func (c ChangeType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// RequiresReEmbed reports whether the classification needs new vectors.
func (c ChangeType) RequiresReEmbed() bool {
	switch c {
	case ChangeNew, ChangeContentChanged:
		return true
	case ChangeMetadataOnly, ChangeNone, ChangeDeleted:
		return false
	default:
		return false
	}
}

// ParseChangeType converts a wire name back to a ChangeType.
func ParseChangeType(s string) (ChangeType, error) {
	for _, c := range ChangeTypes() {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown change type %q", ErrInvalidInput, s)
}

// ChangeResult is the classification of one overlay.
type ChangeResult struct {
	OverlayID string
	Type      ChangeType

	// Entry is the current entry. Nil for ChangeDeleted.
	Entry *ContentEntry

	// Previous is the baseline record. Nil for ChangeNew.
	Previous *BaselineRecord
}

// ChangeSummary aggregates change results for previews.
type ChangeSummary struct {
	Counts          map[ChangeType]int
	Total           int
	RequiresReEmbed int
}

// Count returns the number of results with the given classification.
func (s ChangeSummary) Count(c ChangeType) int {
	return s.Counts[c]
}

// Pending returns the number of results that would produce an operation.
func (s ChangeSummary) Pending() int {
	return s.Total - s.Counts[ChangeNone]
}

// BaselineRecord is what the index last recorded for one overlay.
type BaselineRecord struct {
	OverlayID    string
	ContentHash  string
	MetadataHash string

	// Status is the payload status in the index. Soft-deleted overlays keep
	// their points with status deprecated.
	Status EntryStatus

	// Chunks is the number of points stored for the overlay.
	Chunks int

	// TotalChunks is the chunk count the points claim. It differs from
	// Chunks when an upsert was interrupted part way.
	TotalChunks int

	// Mixed is set when the points disagree on content or metadata hash,
	// which happens when a write covering several requests stopped early.
	Mixed bool
}

// IsComplete reports whether every chunk of the overlay is present and
// written by the same compile.
func (r BaselineRecord) IsComplete() bool {
	return !r.Mixed && r.Chunks == r.TotalChunks
}

// Baseline is the index state snapshot a compile diffs against. It is built
// once per compile and never mutated afterwards.
type Baseline struct {
	records map[string]BaselineRecord
}

// NewBaseline builds a snapshot from records.
func NewBaseline(records []BaselineRecord) *Baseline {
	b := &Baseline{records: make(map[string]BaselineRecord, len(records))}
	for _, r := range records {
		b.records[r.OverlayID] = r
	}
	return b
}

// Lookup returns the record for an overlay.
func (b *Baseline) Lookup(overlayID string) (BaselineRecord, bool) {
	r, ok := b.records[overlayID]
	return r, ok
}

// Len returns the number of overlays in the snapshot.
func (b *Baseline) Len() int {
	return len(b.records)
}

// IDs returns the overlay ids in ascending order.
func (b *Baseline) IDs() []string {
	ids := make([]string, 0, len(b.records))
	for id := range b.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
