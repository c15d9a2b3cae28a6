package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
	"github.com/custodia-labs/overlayc/internal/logger"
)

// Ensure Compiler implements the interface.
var _ driving.Compiler = (*Compiler)(nil)

// DefaultUpsertBatchSize caps the points sent in one upsert request.
const DefaultUpsertBatchSize = 100

// entrySource is the part of the entry service the compiler reads.
type entrySource interface {
	ListActive(ctx context.Context) ([]*domain.ContentEntry, error)
	Get(ctx context.Context, id string) (*domain.ContentEntry, error)
}

// Compiler synchronises the vector index with the active overlay entries.
// Only one compile runs at a time per Compiler.
type Compiler struct {
	entries  entrySource
	detector *ChangeDetector
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	chunker  driven.Chunker
	versions driven.BuildVersionStore
	observer driven.CompileObserver

	upsertBatchSize int

	running sync.Mutex
	now     func() time.Time
}

// NewCompiler creates a new compiler.
// The index and embedder may be nil; Status and dry runs still work without
// an embedder, and every compile reports ErrVectorIndexUnavailable without
// an index.
func NewCompiler(
	entries entrySource,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	versions driven.BuildVersionStore,
) *Compiler {
	return &Compiler{
		entries:         entries,
		detector:        NewChangeDetector(index),
		index:           index,
		embedder:        embedder,
		chunker:         chunker,
		versions:        versions,
		observer:        driven.NopObserver{},
		upsertBatchSize: DefaultUpsertBatchSize,
		now:             time.Now,
	}
}

// SetObserver sets the compile telemetry sink.
func (c *Compiler) SetObserver(o driven.CompileObserver) {
	if o == nil {
		o = driven.NopObserver{}
	}
	c.observer = o
}

// SetUpsertBatchSize overrides the number of points per upsert request.
func (c *Compiler) SetUpsertBatchSize(n int) {
	if n > 0 {
		c.upsertBatchSize = n
	}
}

// plannedEntry is one entry scheduled for embedding.
type plannedEntry struct {
	change  domain.ChangeResult
	chunks  []domain.Chunk
	vectors [][]float32
	failed  bool
}

// Compile runs one incremental compile.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (c *Compiler) Compile(ctx context.Context, opts domain.CompileOptions) (*domain.CompilationResult, error) {
	opts = opts.Normalised()
	result := &domain.CompilationResult{DryRun: opts.DryRun}

	if !c.running.TryLock() {
		result.AddError(domain.ErrCompileInProgress)
		return result, domain.ErrCompileInProgress
	}
	defer c.running.Unlock()
	defer c.withVerbose(opts.Verbose)()

	start := c.now()
	defer func() {
		result.Duration = c.now().Sub(start)
		c.observer.ObserveCompile(result)
	}()

	logger.Section("Compile")

	// 1. Check collaborators
	if err := c.ready(opts); err != nil {
		return c.fatal(result, "checking collaborators", err)
	}

	// 2. Load build version
	version, err := c.versions.Current(ctx)
	if err != nil {
		return c.fatal(result, "loading build version", err)
	}
	result.VersionBefore = version.String()
	result.VersionAfter = version.String()

	// 3. Load active entries
	active, err := c.entries.ListActive(ctx)
	if err != nil {
		return c.fatal(result, "loading active entries", err)
	}

	// 4. Load baseline snapshot
	baseline, err := c.detector.LoadBaseline(ctx)
	if err != nil {
		return c.fatal(result, "loading index baseline", err)
	}
	logger.Info("Loaded %d active entries and %d indexed overlays", len(active), baseline.Len())

	// 5. Detect changes
	changes := DetectChanges(active, baseline)
	summary := Summarize(changes)
	c.observer.ObserveChanges(summary)
	result.Processed = len(changes)
	result.Unchanged = summary.Count(domain.ChangeNone)
	logger.Info("Changes: %s", describeSummary(summary))

	return c.run(ctx, opts, version, changes, result)
}

// CompileEntries force-upserts the named entries regardless of baseline and
// status. An entry that is not active keeps its real status in the payload,
// so readers still never see it. Unknown ids are recorded as errors.
func (c *Compiler) CompileEntries(
	ctx context.Context, ids []string, opts domain.CompileOptions,
) (*domain.CompilationResult, error) {
	opts = opts.Normalised()
	result := &domain.CompilationResult{DryRun: opts.DryRun}

	if !c.running.TryLock() {
		result.AddError(domain.ErrCompileInProgress)
		return result, domain.ErrCompileInProgress
	}
	defer c.running.Unlock()
	defer c.withVerbose(opts.Verbose)()

	start := c.now()
	defer func() {
		result.Duration = c.now().Sub(start)
		c.observer.ObserveCompile(result)
	}()

	logger.Section("Compile Entries")

	if err := c.ready(opts); err != nil {
		return c.fatal(result, "checking collaborators", err)
	}
	version, err := c.versions.Current(ctx)
	if err != nil {
		return c.fatal(result, "loading build version", err)
	}
	result.VersionBefore = version.String()
	result.VersionAfter = version.String()

	baseline, err := c.detector.LoadBaseline(ctx)
	if err != nil {
		return c.fatal(result, "loading index baseline", err)
	}

	changes := make([]domain.ChangeResult, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		e, err := c.entries.Get(ctx, id)
		if err != nil {
			logger.Warn("Skipping %s: %v", id, err)
			result.AddError(fmt.Errorf("load %s: %w", id, err))
			continue
		}
		change := domain.ChangeResult{OverlayID: id, Type: domain.ChangeNew, Entry: e}
		if rec, ok := baseline.Lookup(id); ok {
			prev := rec
			change.Type = domain.ChangeContentChanged
			change.Previous = &prev
		}
		changes = append(changes, change)
	}
	result.Processed = len(changes)
	c.observer.ObserveChanges(Summarize(changes))

	return c.run(ctx, opts, version, changes, result)
}

// Status previews the next compile without writing anything.
func (c *Compiler) Status(ctx context.Context) (*domain.CompileStatus, error) {
	if c.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	version, err := c.versions.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load build version: %w", err)
	}
	active, err := c.entries.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active entries: %w", err)
	}
	baseline, err := c.detector.LoadBaseline(ctx)
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	published := 0
	for _, id := range baseline.IDs() {
		if rec, _ := baseline.Lookup(id); rec.Status == domain.StatusActive {
			published++
		}
	}

	summary := Summarize(DetectChanges(active, baseline))
	return &domain.CompileStatus{
		Version:        version.String(),
		OverlayCount:   len(active),
		IndexCount:     published,
		PendingChanges: summary.Pending(),
		Summary:        summary,
	}, nil
}

// run embeds, plans and executes the operations for changes.
func (c *Compiler) run(
	ctx context.Context,
	opts domain.CompileOptions,
	version domain.BuildVersion,
	changes []domain.ChangeResult,
	result *domain.CompilationResult,
) (*domain.CompilationResult, error) {
	// Chunk everything that needs vectors
	planned := make([]*plannedEntry, 0)
	for _, ch := range changes {
		if ch.Type.RequiresReEmbed() {
			planned = append(planned, &plannedEntry{change: ch, chunks: c.chunker.Chunk(ch.Entry)})
		}
	}

	// Embed in batches, unless this is a dry run
	if !opts.DryRun && len(planned) > 0 {
		logger.Section("Embedding")
		c.embed(ctx, opts, planned, result)
	}

	// Build operations
	ops := c.buildOperations(changes, planned, opts.DryRun)
	for _, op := range ops {
		result.Operations = append(result.Operations, domain.OperationSummary{
			Kind:      op.Kind,
			OverlayID: op.OverlayID,
			Change:    op.Change,
			Points:    pointCount(op, planned),
		})
	}

	if opts.DryRun {
		for _, op := range ops {
			countOperation(result, op)
		}
		logger.Info("Dry run: %d operations planned", len(ops))
		return result, nil
	}

	// Execute
	logger.Section("Index Writes")
	succeeded, writeErr := c.execute(ctx, ops, result)
	if writeErr != nil {
		result.AddError(writeErr)
		logger.Warn("Stopped index writes: %v", writeErr)
		return result, nil
	}

	// Bump the build version once
	if succeeded > 0 {
		next := version.Bump()
		if err := c.versions.Save(ctx, next); err != nil {
			result.AddError(fmt.Errorf("save build version: %w", err))
		} else {
			result.VersionAfter = next.String()
		}
	}

	logger.Info("Compile complete: %d operations, version %s -> %s",
		succeeded, result.VersionBefore, result.VersionAfter)
	return result, nil
}

// embed fills vectors for each planned entry. A failed batch marks its
// entries failed and the compile carries on with the rest.
func (c *Compiler) embed(
	ctx context.Context, opts domain.CompileOptions, planned []*plannedEntry, result *domain.CompilationResult,
) {
	batches := make([][]*plannedEntry, 0, len(planned)/opts.BatchSize+1)
	for i := 0; i < len(planned); i += opts.BatchSize {
		end := i + opts.BatchSize
		if end > len(planned) {
			end = len(planned)
		}
		batches = append(batches, planned[i:end])
	}

	errs := make([]error, len(batches))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			errs[i] = c.embedBatch(ctx, batch)
			if errs[i] != nil {
				ids := make([]string, len(batch))
				for j, p := range batch {
					p.failed = true
					ids[j] = p.change.OverlayID
				}
				errs[i] = &domain.EmbeddingBatchError{
					Batch: i + 1, Batches: len(batches), OverlayIDs: ids, Cause: errs[i],
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	// Report in batch order regardless of completion order.
	for i, err := range errs {
		if err == nil {
			continue
		}
		var batchErr *domain.EmbeddingBatchError
		if errors.As(err, &batchErr) {
			result.EmbeddingFailures += len(batchErr.OverlayIDs)
		}
		logger.Warn("Embedding batch %d/%d failed: %v", i+1, len(batches), err)
		result.AddError(err)
	}
}

func (c *Compiler) embedBatch(ctx context.Context, batch []*plannedEntry) error {
	texts := make([]string, 0)
	for _, p := range batch {
		for _, ch := range p.chunks {
			texts = append(texts, ch.Content)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	started := c.now()
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}
	c.observer.ObserveEmbedding(len(texts), c.now().Sub(started), err)
	if err != nil {
		return err
	}

	offset := 0
	for _, p := range batch {
		p.vectors = vectors[offset : offset+len(p.chunks)]
		offset += len(p.chunks)
	}
	logger.Debug("Embedded %d chunks for %d entries", len(texts), len(batch))
	return nil
}

// buildOperations maps each change to at most one index operation.
// Entries whose embedding failed get no operation and are retried by the
// next compile.
func (c *Compiler) buildOperations(
	changes []domain.ChangeResult, planned []*plannedEntry, dryRun bool,
) []domain.IndexOperation {
	byID := make(map[string]*plannedEntry, len(planned))
	for _, p := range planned {
		byID[p.change.OverlayID] = p
	}

	ops := make([]domain.IndexOperation, 0, len(changes))
	for _, ch := range changes {
		switch ch.Type {
		case domain.ChangeNew, domain.ChangeContentChanged:
			p := byID[ch.OverlayID]
			if p == nil || p.failed || len(p.chunks) == 0 {
				continue
			}
			op := domain.IndexOperation{Kind: domain.OpUpsert, OverlayID: ch.OverlayID, Change: ch.Type}
			if !dryRun {
				op.Points = buildPoints(ch.Entry, p.chunks, p.vectors)
			}
			ops = append(ops, op)
		case domain.ChangeMetadataOnly:
			payload := domain.NewEntryPayload(ch.Entry)
			ops = append(ops, domain.IndexOperation{
				Kind: domain.OpUpdatePayload, OverlayID: ch.OverlayID, Change: ch.Type, Payload: &payload,
			})
		case domain.ChangeDeleted:
			ops = append(ops, domain.IndexOperation{Kind: domain.OpSoftDelete, OverlayID: ch.OverlayID, Change: ch.Type})
		case domain.ChangeNone:
		}
	}
	return ops
}

func buildPoints(e *domain.ContentEntry, chunks []domain.Chunk, vectors [][]float32) []domain.IndexPoint {
	base := domain.NewEntryPayload(e)
	points := make([]domain.IndexPoint, len(chunks))
	for i, ch := range chunks {
		points[i] = domain.IndexPoint{
			OverlayID:  e.ID,
			ChunkIndex: ch.ChunkIndex,
			Vector:     vectors[i],
			Payload: domain.ChunkPayload{
				EntryPayload: base,
				ChunkIndex:   ch.ChunkIndex,
				TotalChunks:  ch.TotalChunks,
				Text:         ch.Content,
				StartOffset:  ch.StartOffset,
				EndOffset:    ch.EndOffset,
			},
		}
	}
	return points
}

// execute runs ops against the index. Upserts are packed into requests of at
// most upsertBatchSize points; an overlay's stale tail chunks are pruned
// once all of its points are written. Soft deletes go out in one request.
// The first write error stops every remaining write.
func (c *Compiler) execute(
	ctx context.Context, ops []domain.IndexOperation, result *domain.CompilationResult,
) (int, error) {
	succeeded := 0
	var upserts, updates, deletes []domain.IndexOperation
	for _, op := range ops {
		switch op.Kind {
		case domain.OpUpsert:
			upserts = append(upserts, op)
		case domain.OpUpdatePayload:
			updates = append(updates, op)
		case domain.OpSoftDelete:
			deletes = append(deletes, op)
		}
	}

	// Upserts
	var pending []domain.IndexPoint
	var waiting []domain.IndexOperation
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := c.index.Upsert(ctx, pending)
		if err != nil {
			c.observer.ObserveOperation(domain.OpUpsert, err)
			return &domain.IndexWriteError{Operation: domain.OpUpsert, OverlayID: pending[0].OverlayID, Cause: err}
		}
		logger.Debug("Upserted %d points", len(pending))
		pending = pending[:0]
		// Every waiting op is fully written once its last point is flushed.
		for _, op := range waiting {
			if err := c.index.DeleteChunksFrom(ctx, op.OverlayID, len(op.Points)); err != nil {
				c.observer.ObserveOperation(op.Kind, err)
				return &domain.IndexWriteError{Operation: domain.OpUpsert, OverlayID: op.OverlayID, Cause: err}
			}
			c.observer.ObserveOperation(op.Kind, nil)
			countOperation(result, op)
			succeeded++
		}
		waiting = waiting[:0]
		return nil
	}
	for _, op := range upserts {
		points := op.Points
		for len(points) > 0 {
			room := c.upsertBatchSize - len(pending)
			if room > len(points) {
				room = len(points)
			}
			pending = append(pending, points[:room]...)
			points = points[room:]
			if len(points) == 0 {
				waiting = append(waiting, op)
			}
			if len(pending) >= c.upsertBatchSize {
				if err := flush(); err != nil {
					return succeeded, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return succeeded, err
	}

	// Metadata-only payload updates
	for _, op := range updates {
		payload, err := payloadMap(op.Payload)
		if err == nil {
			err = c.index.SetPayload(ctx, []string{op.OverlayID}, payload)
		}
		c.observer.ObserveOperation(op.Kind, err)
		if err != nil {
			return succeeded, &domain.IndexWriteError{Operation: op.Kind, OverlayID: op.OverlayID, Cause: err}
		}
		countOperation(result, op)
		succeeded++
	}

	// Soft deletes
	if len(deletes) > 0 {
		ids := make([]string, len(deletes))
		for i, op := range deletes {
			ids[i] = op.OverlayID
		}
		err := c.index.SetPayload(ctx, ids, map[string]any{domain.FieldStatus: string(domain.StatusDeprecated)})
		for _, op := range deletes {
			c.observer.ObserveOperation(op.Kind, err)
		}
		if err != nil {
			return succeeded, &domain.IndexWriteError{
				Operation: domain.OpSoftDelete, OverlayID: strings.Join(ids, ","), Cause: err,
			}
		}
		for _, op := range deletes {
			countOperation(result, op)
			succeeded++
		}
		logger.Debug("Soft-deleted %d overlays", len(ids))
	}

	return succeeded, nil
}

func countOperation(result *domain.CompilationResult, op domain.IndexOperation) {
	switch op.Change {
	case domain.ChangeNew:
		result.NewEntries++
	case domain.ChangeContentChanged:
		result.ReEmbedded++
	case domain.ChangeMetadataOnly:
		result.UpdatedMetadata++
	case domain.ChangeDeleted:
		result.SoftDeleted++
	case domain.ChangeNone:
	}
}

func pointCount(op domain.IndexOperation, planned []*plannedEntry) int {
	if op.Kind != domain.OpUpsert {
		return 0
	}
	if len(op.Points) > 0 {
		return len(op.Points)
	}
	for _, p := range planned {
		if p.change.OverlayID == op.OverlayID {
			return len(p.chunks)
		}
	}
	return 0
}

// payloadMap converts an entry payload into the map form SetPayload takes.
func payloadMap(p *domain.EntryPayload) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func (c *Compiler) ready(opts domain.CompileOptions) error {
	if c.index == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if c.embedder == nil && !opts.DryRun {
		return domain.ErrEmbeddingUnavailable
	}
	return nil
}

func (c *Compiler) fatal(
	result *domain.CompilationResult, stage string, err error,
) (*domain.CompilationResult, error) {
	fatal := &domain.CompilationFatalError{Stage: stage, Cause: err}
	result.Processed = 0
	result.Errors = nil
	result.AddError(fatal)
	logger.Warn("%v", fatal)
	return result, fatal
}

// withVerbose turns verbose logging on for one run and returns the restore
// function.
func (c *Compiler) withVerbose(verbose bool) func() {
	if !verbose || logger.IsVerbose() {
		return func() {}
	}
	logger.SetVerbose(true)
	return func() { logger.SetVerbose(false) }
}

func describeSummary(s domain.ChangeSummary) string {
	parts := make([]string, 0, len(s.Counts))
	for _, t := range domain.ChangeTypes() {
		if n := s.Count(t); n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", t, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
