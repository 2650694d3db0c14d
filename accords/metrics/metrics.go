// Package metrics exposes the explorer's prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accords"

// Query outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// Load kinds.
const (
	LoadRemote = "remote"
	LoadLocal  = "local"
)

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	queriesIssued  prometheus.Counter
	queryOutcomes  *prometheus.CounterVec
	queryDuration  prometheus.Histogram
	resultRows     prometheus.Histogram
	loads          *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queriesIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_issued_total",
			Help:      "Filter queries sent to the engine after the debounce window.",
		}),
		queryOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_responses_total",
			Help:      "Filter query responses by outcome: applied, stale (superseded and dropped) or failed.",
		}, []string{"outcome"}),
		queryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent by the engine answering a filter query.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		resultRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_result_rows",
			Help:      "Rows in applied filter results.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_loads_total",
			Help:      "Table loads by kind and status.",
		}, []string{"kind", "status"}),
		loadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_load_duration_seconds",
			Help:      "Time spent materializing a table.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"kind"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Explorer sessions currently held in memory.",
		}),
	}
}

// QueryIssued records a query leaving the debounce window.
func (m *Metrics) QueryIssued() {
	if m == nil {
		return
	}
	m.queriesIssued.Inc()
}

// QueryApplied records a response that replaced the published result.
func (m *Metrics) QueryApplied(d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.queryOutcomes.WithLabelValues(OutcomeApplied).Inc()
	m.queryDuration.Observe(d.Seconds())
	m.resultRows.Observe(float64(rows))
}

// QueryStale records a response dropped because a newer query was issued.
func (m *Metrics) QueryStale() {
	if m == nil {
		return
	}
	m.queryOutcomes.WithLabelValues(OutcomeStale).Inc()
}

// QueryFailed records a failed query.
func (m *Metrics) QueryFailed(d time.Duration) {
	if m == nil {
		return
	}
	m.queryOutcomes.WithLabelValues(OutcomeFailed).Inc()
	m.queryDuration.Observe(d.Seconds())
}

// Load records a table load of the given kind.
func (m *Metrics) Load(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.loads.WithLabelValues(kind, status).Inc()
	m.loadDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SessionOpened and SessionClosed track the session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
