// Package metrics exposes prometheus instrumentation for query execution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Execution paths taken by the engine.
const (
	PathNameLookup = "name_lookup"
	PathOfLookup   = "of_lookup"
	PathPushdown   = "pushdown"
	PathUnion      = "union"
)

type Metrics struct {
	registry *prometheus.Registry

	// QueriesTotal counts executions by path and status.
	QueriesTotal *prometheus.CounterVec
	// QueryDuration is the latency of executions by path.
	QueryDuration *prometheus.HistogramVec
	// DocumentsScanned counts documents streamed from the store by path.
	DocumentsScanned *prometheus.CounterVec
	// ParseErrorsTotal counts rejected queries by error kind.
	ParseErrorsTotal *prometheus.CounterVec
	// SeededTotal counts documents written by the seed loader.
	SeededTotal prometheus.Counter
}

// New registers the townql collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "townql_queries_total",
				Help: "Total number of executed queries",
			},
			[]string{"path", "status"},
		),
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "townql_query_duration_seconds",
				Help:    "Query execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		DocumentsScanned: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "townql_documents_scanned_total",
				Help: "Documents streamed from the store",
			},
			[]string{"path"},
		),
		ParseErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "townql_parse_errors_total",
				Help: "Queries rejected before execution",
			},
			[]string{"kind"},
		),
		SeededTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "townql_seeded_documents_total",
			Help: "Documents written by the seed loader",
		}),
	}
}

// ObserveQuery records one execution. A nil receiver is a no-op.
func (m *Metrics) ObserveQuery(path string, scanned int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.QueriesTotal.WithLabelValues(path, status).Inc()
	m.QueryDuration.WithLabelValues(path).Observe(elapsed.Seconds())
	m.DocumentsScanned.WithLabelValues(path).Add(float64(scanned))
}

func (m *Metrics) ObserveParseError(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.ParseErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSeeded(n int) {
	if m == nil {
		return
	}
	m.SeededTotal.Add(float64(n))
}

// Handler returns the HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
