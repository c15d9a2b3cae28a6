package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/logger"
)

// baselinePageSize is the scroll page size used to read the baseline.
const baselinePageSize = 256

// ChangeDetector classifies entries against the index baseline.
type ChangeDetector struct {
	index driven.VectorIndex
}

// NewChangeDetector creates a detector reading from index.
func NewChangeDetector(index driven.VectorIndex) *ChangeDetector {
	return &ChangeDetector{index: index}
}

// LoadBaseline scrolls every point in the index, including deprecated ones,
// and folds them into one record per overlay.
func (d *ChangeDetector) LoadBaseline(ctx context.Context) (*domain.Baseline, error) {
	records := make(map[string]*domain.BaselineRecord)
	firstHashes := make(map[string][2]string)
	order := make([]string, 0)
	offset := ""
	pages := 0

	for {
		page, err := d.index.Scroll(ctx, domain.IndexFilter{}, baselinePageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("scroll index: %w", err)
		}
		pages++

		for _, p := range page.Points {
			id := payloadString(p.Payload, domain.FieldOverlayID)
			if id == "" {
				logger.Warn("Skipping index point %s without overlay_id", p.ID)
				continue
			}
			hashes := [2]string{
				payloadString(p.Payload, domain.FieldContentHash),
				payloadString(p.Payload, domain.FieldMetadataHash),
			}
			rec, ok := records[id]
			if !ok {
				rec = &domain.BaselineRecord{OverlayID: id}
				records[id] = rec
				firstHashes[id] = hashes
				order = append(order, id)
			} else if firstHashes[id] != hashes {
				rec.Mixed = true
			}
			rec.Chunks++
			// Every point of an overlay carries the same entry-level fields,
			// except after an interrupted write; chunk 0 wins then.
			if !ok || payloadInt(p.Payload, domain.FieldChunkIndex) == 0 {
				rec.ContentHash = hashes[0]
				rec.MetadataHash = hashes[1]
				rec.Status = domain.EntryStatus(payloadString(p.Payload, domain.FieldStatus))
				rec.TotalChunks = payloadInt(p.Payload, domain.FieldTotalChunks)
			}
		}

		if page.NextOffset == "" {
			break
		}
		offset = page.NextOffset
	}

	list := make([]domain.BaselineRecord, 0, len(order))
	for _, id := range order {
		list = append(list, *records[id])
	}
	logger.Debug("Baseline: %d overlays from %d scroll pages", len(list), pages)
	return domain.NewBaseline(list), nil
}

// DetectChanges classifies each active entry, then reports overlays that are
// still published in the index but no longer active as deleted.
// Results follow the order of current, then deleted ids in ascending order.
func DetectChanges(current []*domain.ContentEntry, baseline *domain.Baseline) []domain.ChangeResult {
	results := make([]domain.ChangeResult, 0, len(current))
	seen := make(map[string]bool, len(current))

	for _, e := range current {
		seen[e.ID] = true
		results = append(results, classify(e, baseline))
	}

	for _, id := range baseline.IDs() {
		if seen[id] {
			continue
		}
		rec, _ := baseline.Lookup(id)
		// Already soft-deleted in the index; nothing left to do.
		if rec.Status != domain.StatusActive {
			continue
		}
		prev := rec
		results = append(results, domain.ChangeResult{OverlayID: id, Type: domain.ChangeDeleted, Previous: &prev})
	}
	return results
}

func classify(e *domain.ContentEntry, baseline *domain.Baseline) domain.ChangeResult {
	rec, ok := baseline.Lookup(e.ID)
	if !ok {
		return domain.ChangeResult{OverlayID: e.ID, Type: domain.ChangeNew, Entry: e}
	}
	prev := rec
	result := domain.ChangeResult{OverlayID: e.ID, Entry: e, Previous: &prev}

	switch {
	case rec.ContentHash != e.ContentHash, !rec.IsComplete():
		result.Type = domain.ChangeContentChanged
	case rec.MetadataHash != e.MetadataHash, rec.Status != domain.StatusActive:
		// A re-activated entry only needs its payload status flipped back.
		result.Type = domain.ChangeMetadataOnly
	default:
		result.Type = domain.ChangeNone
	}
	return result
}

// Summarize counts results per classification.
func Summarize(results []domain.ChangeResult) domain.ChangeSummary {
	s := domain.ChangeSummary{Counts: make(map[domain.ChangeType]int, len(domain.ChangeTypes()))}
	for _, r := range results {
		s.Counts[r.Type]++
		s.Total++
		if r.Type.RequiresReEmbed() {
			s.RequiresReEmbed++
		}
	}
	return s
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
