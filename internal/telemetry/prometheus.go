package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromMetrics exposes a Prometheus scrape surface alongside the OTLP push
// pipeline. Scrapers that cannot reach the collector read /metrics instead.
type PromMetrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AccessDenials   *prometheus.CounterVec
}

// NewPromMetrics builds a dedicated registry with runtime collectors and the
// HTTP request series.
func NewPromMetrics(serviceName string) *PromMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: prometheus.Labels{"service": serviceName},
	}, []string{"method", "route", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		ConstLabels: prometheus.Labels{"service": serviceName},
		Buckets:     prometheus.DefBuckets,
	}, []string{"method", "route"})

	accessDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "access_denials_total",
		Help:        "Total number of denied access checks at route guards",
		ConstLabels: prometheus.Labels{"service": serviceName},
	}, []string{"route"})

	registry.MustRegister(requestsTotal, requestDuration, accessDenials)

	return &PromMetrics{
		registry:        registry,
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
		AccessDenials:   accessDenials,
	}
}

// Handler returns the scrape endpoint handler for the registry.
func (p *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
