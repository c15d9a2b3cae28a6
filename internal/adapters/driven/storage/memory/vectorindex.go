package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

type storedPoint struct {
	vector  []float32
	payload map[string]any
}

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Payloads go through a JSON round trip so they look the way a remote
// index returns them (numbers as float64).
type VectorIndex struct {
	mu     sync.RWMutex
	points map[string]storedPoint
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{points: make(map[string]storedPoint)}
}

// PointID returns the identity of one chunk point.
func PointID(overlayID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%04d", overlayID, chunkIndex)
}

// Upsert writes points, replacing any with the same identity.
func (v *VectorIndex) Upsert(_ context.Context, points []domain.IndexPoint) error {
	staged := make(map[string]storedPoint, len(points))
	for _, p := range points {
		payload, err := toMap(p.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		staged[PointID(p.OverlayID, p.ChunkIndex)] = storedPoint{vector: vec, payload: payload}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, sp := range staged {
		v.points[id] = sp
	}
	return nil
}

// SetPayload merges payload fields into every point of the overlays.
func (v *VectorIndex) SetPayload(_ context.Context, overlayIDs []string, payload map[string]any) error {
	patch, err := toMap(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	ids := make(map[string]bool, len(overlayIDs))
	for _, id := range overlayIDs {
		ids[id] = true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, sp := range v.points {
		oid, _ := sp.payload[domain.FieldOverlayID].(string)
		if !ids[oid] {
			continue
		}
		for k, val := range patch {
			sp.payload[k] = val
		}
	}
	return nil
}

// DeleteChunksFrom removes tail chunks of an overlay.
func (v *VectorIndex) DeleteChunksFrom(_ context.Context, overlayID string, fromIndex int) error {
	filter := domain.IndexFilter{Must: []domain.FieldCondition{
		domain.Match(domain.FieldOverlayID, overlayID),
		domain.AtLeast(domain.FieldChunkIndex, fromIndex),
	}}
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, sp := range v.points {
		if matches(filter, sp.payload) {
			delete(v.points, id)
		}
	}
	return nil
}

// Scroll pages through matching points in ID order.
func (v *VectorIndex) Scroll(
	_ context.Context, filter domain.IndexFilter, limit int, offset string,
) (domain.ScrollPage, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := v.sortedIDs(filter)
	start := sort.SearchStrings(ids, offset)
	page := domain.ScrollPage{Points: make([]domain.StoredPoint, 0, limit)}
	for i := start; i < len(ids); i++ {
		if limit > 0 && len(page.Points) == limit {
			page.NextOffset = ids[i]
			break
		}
		page.Points = append(page.Points, domain.StoredPoint{ID: ids[i], Payload: clonePayload(v.points[ids[i]].payload)})
	}
	return page, nil
}

// Search ranks matching points by cosine similarity.
func (v *VectorIndex) Search(
	_ context.Context, vector []float32, filter domain.IndexFilter, limit int,
) ([]domain.ScoredPoint, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var hits []domain.ScoredPoint
	for _, id := range v.sortedIDs(filter) {
		sp := v.points[id]
		hits = append(hits, domain.ScoredPoint{
			ID:      id,
			Score:   cosine(vector, sp.vector),
			Payload: clonePayload(sp.payload),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of matching points.
func (v *VectorIndex) Count(_ context.Context, filter domain.IndexFilter) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.sortedIDs(filter)), nil
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}

// Payload returns a copy of a point's payload, for tests.
func (v *VectorIndex) Payload(overlayID string, chunkIndex int) (map[string]any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	sp, ok := v.points[PointID(overlayID, chunkIndex)]
	if !ok {
		return nil, false
	}
	return clonePayload(sp.payload), true
}

func (v *VectorIndex) sortedIDs(filter domain.IndexFilter) []string {
	ids := make([]string, 0, len(v.points))
	for id, sp := range v.points {
		if matches(filter, sp.payload) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func matches(f domain.IndexFilter, payload map[string]any) bool {
	for _, c := range f.Must {
		if !conditionHolds(c, payload) {
			return false
		}
	}
	for _, c := range f.MustNot {
		if conditionHolds(c, payload) {
			return false
		}
	}
	return true
}

func conditionHolds(c domain.FieldCondition, payload map[string]any) bool {
	val, ok := payload[c.Key]
	if !ok {
		return false
	}
	switch {
	case c.MinInt != nil:
		n, ok := val.(float64)
		return ok && n >= float64(*c.MinInt)
	case c.AnyOf != nil:
		s := fmt.Sprint(val)
		for _, want := range c.AnyOf {
			if s == want {
				return true
			}
		}
		return false
	default:
		return fmt.Sprint(val) == fmt.Sprint(c.Value)
	}
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func clonePayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
