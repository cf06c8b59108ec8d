// Package metrics exposes Prometheus instrumentation for batch runs and the read API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns every collector the application reports.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	fetches       *prometheus.CounterVec
	eventsFetched prometheus.Counter
	rowsFlattened prometheus.Counter
	picksEmitted  prometheus.Counter
	rowsPersisted *prometheus.CounterVec
	modelAccuracy prometheus.Gauge
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRunUnix   prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager with a private registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "oddspicks"}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fetcher",
		Name:      "requests_total",
		Help:      "Upstream odds requests by sport and outcome",
	}, []string{"sport", "outcome"})

	m.eventsFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fetcher",
		Name:      "events_total",
		Help:      "Events decoded from successful upstream responses",
	})

	m.rowsFlattened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "rows_flattened_total",
		Help:      "Odds rows produced by flattening events",
	})

	m.picksEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "picks_total",
		Help:      "Picks above the confidence threshold",
	})

	m.rowsPersisted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "storage",
		Name:      "rows_persisted_total",
		Help:      "Rows written per table",
	}, []string{"table"})

	m.modelAccuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "model",
		Name:      "test_accuracy",
		Help:      "Held-out accuracy of the most recent model",
	})

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Batch runs by result",
	}, []string{"result"})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full batch run",
		Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	m.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last batch run finished",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Read API requests by route, method and status",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Read API latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
}

// ObserveFetch records one per-sport upstream request.
func (m *Manager) ObserveFetch(sport, outcome string, events int) {
	m.fetches.WithLabelValues(sport, outcome).Inc()
	m.eventsFetched.Add(float64(events))
}

// AddRows records flattened rows.
func (m *Manager) AddRows(n int) {
	m.rowsFlattened.Add(float64(n))
}

// AddPicks records emitted picks.
func (m *Manager) AddPicks(n int) {
	m.picksEmitted.Add(float64(n))
}

// AddPersisted records rows written to table.
func (m *Manager) AddPersisted(table string, n int) {
	m.rowsPersisted.WithLabelValues(table).Add(float64(n))
}

// SetAccuracy records the latest test accuracy.
func (m *Manager) SetAccuracy(accuracy float64) {
	m.modelAccuracy.Set(accuracy)
}

// ObserveRun records a finished batch run.
func (m *Manager) ObserveRun(result string, elapsed time.Duration) {
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	m.lastRunUnix.Set(float64(time.Now().Unix()))
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for gathering.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
