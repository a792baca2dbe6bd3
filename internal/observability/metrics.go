// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	TicksTotal      prometheus.Counter
	TickFailures    prometheus.Counter
	SnapshotsStored prometheus.Counter
	SymbolsSkipped  prometheus.Counter
	TickDuration    prometheus.Histogram

	// Detection metrics
	PumpsDetected     *prometheus.CounterVec
	SoftSignalsLogged prometheus.Counter
	DetectionErrors   prometheus.Counter

	// Feed metrics
	FeedFetchErrors prometheus.Counter

	// Notification metrics
	NotifyErrors prometheus.Counter

	// Database metrics
	DBRetries       prometheus.Counter
	PoolAcquireWait prometheus.Histogram
	PoolConnections *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_sentinel"
	}

	return &Metrics{
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_total",
			Help:      "Total number of ingestion ticks started",
		}),
		TickFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tick_failures_total",
			Help:      "Total number of ticks that fetched no snapshot batch",
		}),
		SnapshotsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_stored_total",
			Help:      "Total number of snapshots appended to history",
		}),
		SymbolsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "symbols_skipped_total",
			Help:      "Total number of per-symbol failures skipped within a tick",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one full ingestion tick",
			Buckets:   prometheus.DefBuckets,
		}),
		PumpsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "pumps_detected_total",
			Help:      "Total number of pump verdicts by symbol",
		}, []string{"symbol"}),
		SoftSignalsLogged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "soft_signals_logged_total",
			Help:      "Total number of soft-signal price events logged",
		}),
		DetectionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "errors_total",
			Help:      "Total number of failed detector evaluations",
		}),
		FeedFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed snapshot batch fetches",
		}),
		NotifyErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "errors_total",
			Help:      "Total number of failed alert deliveries",
		}),
		DBRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "retries_total",
			Help:      "Total number of retried persistence operations",
		}),
		PoolAcquireWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_acquire_wait_seconds",
			Help:      "Time spent waiting to acquire a pooled connection",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		PoolConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Connection pool state by class (idle, acquired, total)",
		}, []string{"state"}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSoftSignal increments the soft-signal counter.
func RecordSoftSignal() {
	DefaultMetrics.SoftSignalsLogged.Inc()
}

// RecordDBRetry increments the retried-operation counter.
func RecordDBRetry() {
	DefaultMetrics.DBRetries.Inc()
}

// ObservePoolAcquireWait records time spent waiting for a connection.
func ObservePoolAcquireWait(seconds float64) {
	DefaultMetrics.PoolAcquireWait.Observe(seconds)
}

// RecordPoolStat updates the pool gauge set.
func RecordPoolStat(idle, acquired, total int32) {
	DefaultMetrics.PoolConnections.WithLabelValues("idle").Set(float64(idle))
	DefaultMetrics.PoolConnections.WithLabelValues("acquired").Set(float64(acquired))
	DefaultMetrics.PoolConnections.WithLabelValues("total").Set(float64(total))
}
