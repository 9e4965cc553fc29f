package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	requests    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "xsmom_backtest_runs_total", Help: "Backtest runs by outcome"},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xsmom_backtest_run_duration_seconds",
			Help:    "Wall time of backtest runs, including price loading",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "xsmom_api_requests_total", Help: "API requests by transport, method and outcome"},
			[]string{"transport", "method", "outcome"},
		),
	}
	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) observeRequest(transport, method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(transport, method, outcome).Inc()
}
