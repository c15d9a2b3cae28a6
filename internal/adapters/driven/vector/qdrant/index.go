package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/logger"
)

const maxErrorBodyBytes = 1024

// pointNamespace seeds deterministic point ids.
var pointNamespace = uuid.MustParse("6b1f0c1e-3f55-4b4e-9a41-2f8e7c0d5a10")

// indexedFields get a payload index when the collection is created.
var indexedFields = map[string]string{
	domain.FieldOverlayID:     "keyword",
	domain.FieldStatus:        "keyword",
	domain.FieldIsPlaceholder: "bool",
	domain.FieldDomain:        "keyword",
	domain.FieldDomainKey:     "keyword",
	domain.FieldSubKey:        "keyword",
	domain.FieldGuardrail:     "keyword",
	domain.FieldChunkIndex:    "integer",
}

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a driven.VectorIndex backed by the Qdrant REST API.
type VectorIndex struct {
	cfg  Config
	http *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewVectorIndex validates cfg, checks Qdrant is reachable and ensures the
// collection exists with the configured vector size.
func NewVectorIndex(ctx context.Context, cfg Config) (*VectorIndex, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	v := &VectorIndex{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	if err := v.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	logger.Info("Qdrant vector index ready: %s collection=%s dim=%d", cfg.URL, cfg.Collection, cfg.VectorDim)
	return v, nil
}

// EnsureCollection creates the collection and payload indexes when missing,
// and rejects an existing collection with a different vector size.
func (v *VectorIndex) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"

	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := v.doJSON(ctx, op, http.MethodGet, v.collectionPath(""), nil, &info)
	var opErrTyped *OperationError
	switch {
	case err == nil:
		size := info.Config.Params.Vectors.Size
		if size != 0 && size != v.cfg.VectorDim {
			return &OperationError{
				Code:      OperationErrorValidation,
				Operation: op,
				Message: fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d",
					v.cfg.Collection, v.cfg.VectorDim, size),
			}
		}
		return nil
	case errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound:
		// Create below.
	default:
		return err
	}

	create := map[string]any{
		"vectors": map[string]any{"size": v.cfg.VectorDim, "distance": "Cosine"},
	}
	if err := v.doJSON(ctx, op, http.MethodPut, v.collectionPath(""), create, nil); err != nil {
		return err
	}
	for field, schema := range indexedFields {
		req := map[string]any{"field_name": field, "field_schema": schema}
		if err := v.doJSON(ctx, op, http.MethodPut, v.collectionPath("/index?wait=true"), req, nil); err != nil {
			return err
		}
	}
	logger.Info("Created Qdrant collection %s", v.cfg.Collection)
	return nil
}

// Upsert writes points. Re-upserting the same (overlay, chunk) overwrites it.
func (v *VectorIndex) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != v.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("point %s#%d dimension mismatch: expected=%d got=%d",
					p.OverlayID, p.ChunkIndex, v.cfg.VectorDim, len(p.Vector)), nil)
		}
		payload, err := toPayload(p.Payload)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
		}
		body = append(body, map[string]any{
			"id":      PointID(p.OverlayID, p.ChunkIndex),
			"vector":  p.Vector,
			"payload": payload,
		})
	}

	return v.write(ctx, op, http.MethodPut, v.collectionPath("/points?wait=true"), map[string]any{"points": body})
}

// SetPayload merges payload into every point of the overlays.
func (v *VectorIndex) SetPayload(ctx context.Context, overlayIDs []string, payload map[string]any) error {
	if len(overlayIDs) == 0 {
		return nil
	}
	req := map[string]any{
		"payload": payload,
		"filter":  overlayFilter(overlayIDs),
	}
	return v.write(ctx, "set_payload", http.MethodPost, v.collectionPath("/points/payload?wait=true"), req)
}

// DeleteChunksFrom removes points of an overlay with chunk_index >= fromIndex.
func (v *VectorIndex) DeleteChunksFrom(ctx context.Context, overlayID string, fromIndex int) error {
	filter := domain.IndexFilter{Must: []domain.FieldCondition{
		domain.Match(domain.FieldOverlayID, overlayID),
		domain.AtLeast(domain.FieldChunkIndex, fromIndex),
	}}
	req := map[string]any{"filter": translateFilter(filter)}
	return v.write(ctx, "delete", http.MethodPost, v.collectionPath("/points/delete?wait=true"), req)
}

// Scroll pages through matching points in point-id order.
func (v *VectorIndex) Scroll(
	ctx context.Context, filter domain.IndexFilter, limit int, offset string,
) (domain.ScrollPage, error) {
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}
	if offset != "" {
		req["offset"] = offset
	}

	var result struct {
		Points         []qdrantPoint   `json:"points"`
		NextPageOffset json.RawMessage `json:"next_page_offset"`
	}
	if err := v.doJSON(ctx, "scroll", http.MethodPost, v.collectionPath("/points/scroll"), req, &result); err != nil {
		return domain.ScrollPage{}, err
	}

	page := domain.ScrollPage{
		Points:     make([]domain.StoredPoint, 0, len(result.Points)),
		NextOffset: decodePointID(result.NextPageOffset),
	}
	for _, p := range result.Points {
		page.Points = append(page.Points, domain.StoredPoint{ID: decodePointID(p.ID), Payload: p.Payload})
	}
	return page, nil
}

// Search returns the closest matching points by cosine similarity.
func (v *VectorIndex) Search(
	ctx context.Context, vector []float32, filter domain.IndexFilter, limit int,
) ([]domain.ScoredPoint, error) {
	const op = "search"
	if len(vector) != v.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", v.cfg.VectorDim, len(vector)), nil)
	}
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}

	var raw []qdrantPoint
	if err := v.doJSON(ctx, op, http.MethodPost, v.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.ScoredPoint, 0, len(raw))
	for _, p := range raw {
		out = append(out, domain.ScoredPoint{ID: decodePointID(p.ID), Score: p.Score, Payload: p.Payload})
	}
	return out, nil
}

// Count returns the exact number of matching points.
func (v *VectorIndex) Count(ctx context.Context, filter domain.IndexFilter) (int, error) {
	req := map[string]any{"exact": true}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := v.doJSON(ctx, "count", http.MethodPost, v.collectionPath("/points/count"), req, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Close releases idle connections.
func (v *VectorIndex) Close() error {
	v.http.CloseIdleConnections()
	return nil
}

// PointID returns the deterministic Qdrant point id of one chunk.
func PointID(overlayID string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s|%d", overlayID, chunkIndex))).String()
}

// write runs a mutating call with exponential backoff. Only retryable
// failures are repeated.
func (v *VectorIndex) write(ctx context.Context, op, method, path string, in any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = v.cfg.RetryInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := v.doJSON(ctx, op, method, path, in, nil)
		if err == nil {
			return struct{}{}, nil
		}
		var opErrTyped *OperationError
		if errors.As(err, &opErrTyped) && opErrTyped.Retryable() {
			logger.Debug("Qdrant %s attempt %d failed: %v", op, attempt, err)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(v.cfg.MaxRetries)))
	return err
}

func (v *VectorIndex) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, v.cfg.URL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.cfg.APIKey != "" {
		req.Header.Set("api-key", v.cfg.APIKey)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

func (v *VectorIndex) collectionPath(suffix string) string {
	return "/collections/" + v.cfg.Collection + suffix
}

// toPayload flattens a chunk payload into the JSON object Qdrant stores.
func toPayload(p domain.ChunkPayload) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
