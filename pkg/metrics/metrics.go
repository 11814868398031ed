// Package metrics exposes Prometheus metrics for the project context cache
// and the project loader.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors. It implements cache.Recorder and
// projects.Recorder.
type Metrics struct {
	DocumentWritesTotal    prometheus.Counter
	SafeUpdatesTotal       *prometheus.CounterVec
	ContentLookupsTotal    *prometheus.CounterVec
	ReferencesRemovedTotal prometheus.Counter

	FilesParsedTotal *prometheus.CounterVec
	LoadDuration     *prometheus.HistogramVec
	VaultEventsTotal *prometheus.CounterVec
}

// New creates and registers the metrics on the default registry.
// Registration happens once per process; later calls return the same set.
//
// Metrics:
//   - projctx_cache_document_writes_total
//   - projctx_cache_safe_updates_total{outcome}
//   - projctx_cache_content_lookups_total{result}
//   - projctx_cache_references_removed_total
//   - projctx_loader_files_parsed_total{status}
//   - projctx_loader_load_duration_seconds{phase}
//   - projctx_vault_events_total{type}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			DocumentWritesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "projctx_cache_document_writes_total",
					Help: "Total number of project context cache documents written",
				},
			),
			SafeUpdatesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projctx_cache_safe_updates_total",
					Help: "Total number of safe cache updates by outcome",
				},
				[]string{"outcome"}, // written, skipped, unchanged, failed
			),
			ContentLookupsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projctx_cache_content_lookups_total",
					Help: "Total number of file content lookups by result",
				},
				[]string{"result"}, // hit, miss, stale
			),
			ReferencesRemovedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "projctx_cache_references_removed_total",
					Help: "Total number of stale file references removed",
				},
			),
			FilesParsedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projctx_loader_files_parsed_total",
					Help: "Total number of files parsed into project context",
				},
				[]string{"status"}, // success, failed
			),
			LoadDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "projctx_loader_load_duration_seconds",
					Help:    "Duration of project context load phases in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
				},
				[]string{"phase"}, // markdown, files
			),
			VaultEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "projctx_vault_events_total",
					Help: "Total number of vault change events handled",
				},
				[]string{"type"},
			),
		}
	})

	return globalMetrics
}

// DocumentWritten implements cache.Recorder.
func (m *Metrics) DocumentWritten() {
	m.DocumentWritesTotal.Inc()
}

// SafeUpdate implements cache.Recorder.
func (m *Metrics) SafeUpdate(outcome string) {
	m.SafeUpdatesTotal.WithLabelValues(outcome).Inc()
}

// ContentLookup implements cache.Recorder.
func (m *Metrics) ContentLookup(result string) {
	m.ContentLookupsTotal.WithLabelValues(result).Inc()
}

// ReferencesRemoved implements cache.Recorder.
func (m *Metrics) ReferencesRemoved(n int) {
	m.ReferencesRemovedTotal.Add(float64(n))
}

// FileParsed records the outcome of parsing one file.
func (m *Metrics) FileParsed(ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	m.FilesParsedTotal.WithLabelValues(status).Inc()
}

// LoadPhase records how long a load phase took.
func (m *Metrics) LoadPhase(phase string, seconds float64) {
	m.LoadDuration.WithLabelValues(phase).Observe(seconds)
}

// VaultEvent records a handled vault event.
func (m *Metrics) VaultEvent(eventType string) {
	m.VaultEventsTotal.WithLabelValues(eventType).Inc()
}
