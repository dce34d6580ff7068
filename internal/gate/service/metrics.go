package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the gate's Prometheus collectors. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	StoreFailures *prometheus.CounterVec
	Replays       prometheus.Counter
	HTTPDuration  *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Gate admission decisions by route and outcome.",
		}, []string{"route", "outcome"}),
		StoreFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_ratelimit_store_failures_total",
			Help: "Rate limit checks that could not reach the shared store.",
		}, []string{"action"}),
		Replays: f.NewCounter(prometheus.CounterOpts{
			Name: "gate_refresh_replays_total",
			Help: "Refresh token replays detected.",
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
	}
}

// ObserveHTTP records one served request. path is the route pattern, never
// the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(path, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(path, method, status).Observe(d.Seconds())
	m.HTTPRequests.WithLabelValues(path, method, status).Inc()
}

func (m *Metrics) decision(route, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) storeFailure(action string) {
	if m == nil {
		return
	}
	m.StoreFailures.WithLabelValues(action).Inc()
}

func (m *Metrics) replay() {
	if m == nil {
		return
	}
	m.Replays.Inc()
}
