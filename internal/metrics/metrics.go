// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway collectors registered on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	proxyRequests  *prometheus.CounterVec
	proxyDuration  *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
}

// New creates a registry with the gateway collectors plus the standard
// process and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		proxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oagw_proxy_requests_total",
			Help: "Proxy requests by alias, status code, and error source.",
		}, []string{"alias", "status", "error_source"}),
		proxyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oagw_proxy_request_duration_seconds",
			Help:    "Proxy request duration until response headers, by alias.",
			Buckets: prometheus.DefBuckets,
		}, []string{"alias"}),
		rateLimitHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oagw_rate_limit_rejections_total",
			Help: "Rate-limited requests by scope (upstream or route).",
		}, []string{"scope"}),
		upstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oagw_upstream_errors_total",
			Help: "Forwarding failures by error kind.",
		}, []string{"kind"}),
	}
}

// RecordProxyRequest records a completed proxy request.
func (m *Metrics) RecordProxyRequest(alias string, status int, errorSource string, duration time.Duration) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(alias, strconv.Itoa(status), errorSource).Inc()
	m.proxyDuration.WithLabelValues(alias).Observe(duration.Seconds())
}

// RecordRateLimitRejection records a token-bucket rejection.
func (m *Metrics) RecordRateLimitRejection(scope string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(scope).Inc()
}

// RecordUpstreamError records a forwarding failure by error kind.
func (m *Metrics) RecordUpstreamError(kind string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(kind).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
