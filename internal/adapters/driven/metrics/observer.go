// Package metrics records compile telemetry as Prometheus metrics.
//
// The CLI is short lived, so metrics are not served over HTTP. Instead a
// compile can write them in textfile-collector format for node_exporter.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

const namespace = "overlayc"

// Ensure Observer implements the interface.
var _ driven.CompileObserver = (*Observer)(nil)

// Observer is a driven.CompileObserver backed by its own registry.
type Observer struct {
	registry *prometheus.Registry

	Changes           *prometheus.CounterVec
	EmbeddingBatches  *prometheus.CounterVec
	EmbeddingTexts    prometheus.Counter
	EmbeddingDuration prometheus.Histogram
	Operations        *prometheus.CounterVec
	Compiles          *prometheus.CounterVec
	CompileDuration   prometheus.Histogram
	LastCompile       prometheus.Gauge
	LastErrors        prometheus.Gauge
}

// NewObserver creates an observer with every metric registered on a fresh
// registry.
func NewObserver() *Observer {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Observer{
		registry: reg,
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "changes_total",
			Help:      "Classified entry changes by change type.",
		}, []string{"change"}),
		EmbeddingBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batches_total",
			Help:      "Embedding batch calls by outcome.",
		}, []string{"status"}),
		EmbeddingTexts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "texts_total",
			Help:      "Chunk texts sent for embedding.",
		}),
		EmbeddingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batch_duration_seconds",
			Help:      "Embedding batch latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "operations_total",
			Help:      "Index operations by kind and outcome.",
		}, []string{"kind", "status"}),
		Compiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "runs_total",
			Help:      "Compile runs by outcome.",
		}, []string{"status"}),
		CompileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "duration_seconds",
			Help:      "Compile run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastCompile: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last compile finished.",
		}),
		LastErrors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compile",
			Name:      "last_run_errors",
			Help:      "Errors recorded by the last compile.",
		}),
	}
}

// ObserveChanges records the classification counts of a compile.
func (o *Observer) ObserveChanges(summary domain.ChangeSummary) {
	for _, c := range domain.ChangeTypes() {
		o.Changes.WithLabelValues(c.String()).Add(float64(summary.Count(c)))
	}
}

// ObserveEmbedding records one embedding batch.
func (o *Observer) ObserveEmbedding(texts int, elapsed time.Duration, err error) {
	o.EmbeddingBatches.WithLabelValues(outcome(err)).Inc()
	o.EmbeddingTexts.Add(float64(texts))
	o.EmbeddingDuration.Observe(elapsed.Seconds())
}

// ObserveOperation records one executed index operation.
func (o *Observer) ObserveOperation(kind domain.OperationKind, err error) {
	o.Operations.WithLabelValues(kind.String(), outcome(err)).Inc()
}

// ObserveCompile records the end of a compile. Dry runs are counted
// separately and do not move the last-run gauges.
func (o *Observer) ObserveCompile(result *domain.CompilationResult) {
	if result == nil {
		return
	}
	status := "success"
	switch {
	case result.DryRun:
		status = "dry_run"
	case result.HasErrors():
		status = "error"
	}
	o.Compiles.WithLabelValues(status).Inc()
	o.CompileDuration.Observe(result.Duration.Seconds())

	if result.DryRun {
		return
	}
	o.LastCompile.SetToCurrentTime()
	o.LastErrors.Set(float64(len(result.Errors)))
}

// Gatherer exposes the registry, e.g. for an HTTP handler.
func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is written atomically.
func (o *Observer) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
