package domain

import "time"

// DefaultBatchSize is the number of entries embedded per embedding call.
const DefaultBatchSize = 10

// CompileOptions configures a compile run.
type CompileOptions struct {
	// DryRun reports what would happen without embedding, writing or
	// bumping the build version.
	DryRun bool

	// BatchSize is the number of entries per embedding batch.
	BatchSize int

	// Concurrency bounds how many embedding batches run at once.
	// Values below 2 run batches one after another.
	Concurrency int

	// Verbose enables debug logging for the run.
	Verbose bool
}

// Normalised returns opts with defaults applied.
func (o CompileOptions) Normalised() CompileOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o
}

// OperationSummary describes one planned or executed index operation.
type OperationSummary struct {
	Kind      OperationKind `json:"kind"`
	OverlayID string        `json:"overlay_id"`
	Change    ChangeType    `json:"change"`
	Points    int           `json:"points"`
}

// CompilationResult reports a compile run. It is returned even when the
// run failed part way, so counts and Duration stay populated.
type CompilationResult struct {
	DryRun bool `json:"dry_run"`

	Processed       int `json:"processed"`
	NewEntries      int `json:"new_entries"`
	UpdatedMetadata int `json:"updated_metadata"`
	ReEmbedded      int `json:"re_embedded"`
	SoftDeleted     int `json:"soft_deleted"`
	Unchanged       int `json:"unchanged"`

	// EmbeddingFailures counts entries left without an operation because
	// their embedding batch failed. They are retried on the next compile.
	EmbeddingFailures int `json:"embedding_failures"`

	Operations []OperationSummary `json:"operations"`
	Errors     []string           `json:"errors"`

	VersionBefore string        `json:"version_before"`
	VersionAfter  string        `json:"version_after"`
	Duration      time.Duration `json:"duration"`
}

// HasErrors reports whether any work was skipped.
func (r *CompilationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// AddError appends a descriptive error string.
func (r *CompilationResult) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// CompileStatus is a read-only preview of the next compile.
type CompileStatus struct {
	Version        string        `json:"version"`
	OverlayCount   int           `json:"overlay_count"`
	IndexCount     int           `json:"index_count"`
	PendingChanges int           `json:"pending_changes"`
	Summary        ChangeSummary `json:"-"`
}
