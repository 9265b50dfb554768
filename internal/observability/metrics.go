// Package observability exposes Prometheus metrics for the ingestion
// pipeline and storage layer.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// no-op, so components can run unmetered in tests.
type Metrics struct {
	registry *prometheus.Registry

	recordsProcessed  prometheus.Counter
	recordsSkipped    *prometheus.CounterVec
	recordsFailed     prometheus.Counter
	identitiesCreated prometheus.Counter
	aliasesAdded      prometheus.Counter
	observations      *prometheus.CounterVec
	storageErrors     prometheus.Counter
	ingestDuration    prometheus.Histogram
}

// NewMetrics registers the pipeline collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		recordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricetrack_records_processed_total",
			Help: "Raw records accepted by the pipeline.",
		}),
		recordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricetrack_records_skipped_total",
			Help: "Raw records skipped during normalization, by reason.",
		}, []string{"reason"}),
		recordsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricetrack_records_failed_total",
			Help: "Records that failed after normalization.",
		}),
		identitiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricetrack_identities_created_total",
			Help: "New product identities created by the resolver.",
		}),
		aliasesAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricetrack_identity_aliases_added_total",
			Help: "Titles attached to existing identities as new aliases.",
		}),
		observations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricetrack_observations_total",
			Help: "Ledger appends, by outcome (inserted or overwritten).",
		}, []string{"outcome"}),
		storageErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricetrack_storage_errors_total",
			Help: "Storage operations that returned an error.",
		}),
		ingestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricetrack_ingest_duration_seconds",
			Help:    "Wall-clock duration of ingestion runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordProcessed() {
	if m == nil {
		return
	}
	m.recordsProcessed.Inc()
}

func (m *Metrics) RecordSkipped(reason string) {
	if m == nil {
		return
	}
	m.recordsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.recordsFailed.Inc()
}

func (m *Metrics) IdentityCreated() {
	if m == nil {
		return
	}
	m.identitiesCreated.Inc()
}

func (m *Metrics) AliasAdded() {
	if m == nil {
		return
	}
	m.aliasesAdded.Inc()
}

func (m *Metrics) ObservationAppended(outcome string) {
	if m == nil {
		return
	}
	m.observations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StorageError() {
	if m == nil {
		return
	}
	m.storageErrors.Inc()
}

func (m *Metrics) ObserveIngestDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestDuration.Observe(d.Seconds())
}
