// Package metrics holds the Prometheus collectors of the viewer.
//
// Every method is safe on a nil *Metrics, so callers that run without a
// registry (tests, tools) can pass nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dataviewer"

// Metrics holds all Prometheus metrics for the viewer.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	SessionsEvicted prometheus.Counter
	Intents         *prometheus.CounterVec
	Loads           *prometheus.CounterVec
	LoadDuration    *prometheus.HistogramVec
	RowsRendered    prometheus.Counter
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of open viewer sessions",
	})

	sessionsEvicted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Sessions closed by the idle sweeper",
	})

	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Intents applied to sessions",
	}, []string{"intent", "outcome"})

	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loads_total",
		Help:      "Dataset loads by source format",
	}, []string{"format", "outcome"})

	loadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "load_duration_seconds",
		Help:      "Time spent decoding a dataset source",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
	}, []string{"format"})

	rowsRendered := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_rendered_total",
		Help:      "Body rows emitted by the grid builder",
	})

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status",
	}, []string{"method", "route", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	reg.MustRegister(sessionsActive, sessionsEvicted, intents, loads, loadDuration,
		rowsRendered, requests, requestDuration)

	return &Metrics{
		SessionsActive:  sessionsActive,
		SessionsEvicted: sessionsEvicted,
		Intents:         intents,
		Loads:           loads,
		LoadDuration:    loadDuration,
		RowsRendered:    rowsRendered,
		Requests:        requests,
		RequestDuration: requestDuration,
	}
}

// SetSessions records the number of open sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// AddEvicted counts sessions closed by the sweeper.
func (m *Metrics) AddEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsEvicted.Add(float64(n))
}

// ObserveIntent counts one applied intent.
func (m *Metrics) ObserveIntent(intent string, err error) {
	if m == nil {
		return
	}
	m.Intents.WithLabelValues(intent, outcome(err)).Inc()
}

// ObserveLoad records one source load.
func (m *Metrics) ObserveLoad(format string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(format, outcome(err)).Inc()
	if err == nil {
		m.LoadDuration.WithLabelValues(format).Observe(d.Seconds())
	}
}

// AddRows counts rendered body rows.
func (m *Metrics) AddRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsRendered.Add(float64(n))
}

// ObserveRequest records one HTTP request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
