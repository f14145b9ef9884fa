// Package metrics exposes Prometheus collectors for the quoting service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry        *prometheus.Registry
	quotesBuilt     *prometheus.CounterVec
	roiComputed     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		quotesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hvac_quotes_built_total",
			Help: "Quote builds by outcome.",
		}, []string{"outcome"}),
		roiComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hvac_roi_computed_total",
			Help: "ROI analyses by outcome.",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hvac_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.quotesBuilt,
		m.roiComputed,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) QuoteBuilt(outcome string)  { m.quotesBuilt.WithLabelValues(outcome).Inc() }
func (m *Metrics) ROIComputed(outcome string) { m.roiComputed.WithLabelValues(outcome).Inc() }

// ObserveRequest records one request duration.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for registering extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
