// Package observability provides Prometheus metrics for the scan pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeThrottled = "throttled"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
)

// Metrics holds the pipeline metrics, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Fetch metrics
	FetchAttempts *prometheus.CounterVec
	FetchLatency  prometheus.Histogram
	FetchFailures prometheus.Counter

	// Scheduler metrics
	InFlight         prometheus.Gauge
	EntriesMerged    prometheus.Counter
	EntriesSkipped   prometheus.Counter
	EntriesAbandon   prometheus.Counter
	PositionsDropped *prometheus.CounterVec

	// Scan metrics
	ScanRuns        *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	LedgerPositions prometheus.Gauge
	LedgerWhales    prometheus.Gauge
	PersistFailures prometheus.Counter
}

// NewMetrics creates the metric set. Every call gets its own registry,
// so tests may build as many as they like.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whalewatch"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Snapshot fetch attempts by outcome",
		}, []string{"outcome"}),
		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "Snapshot request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "hard_failures_total",
			Help:      "Fetches that gave up without a snapshot",
		}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "in_flight",
			Help:      "Roster entries currently holding a slot",
		}),
		EntriesMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "merged_total",
			Help:      "Snapshots merged into the ledger",
		}),
		EntriesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skipped_total",
			Help:      "Entries skipped because their account value did not change",
		}),
		EntriesAbandon: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "abandoned_total",
			Help:      "Dequeued entries dropped because the scan stopped",
		}),
		PositionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merger",
			Name:      "positions_dropped_total",
			Help:      "Raw positions rejected during merge by reason",
		}, []string{"reason"}),

		ScanRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Scan cycles by outcome",
		}, []string{"outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		LedgerPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions",
			Help:      "Position records currently in the ledger",
		}),
		LedgerWhales: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "whales",
			Help:      "Addresses with at least one position in the ledger",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "persist_failures_total",
			Help:      "Failed ledger persists",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
