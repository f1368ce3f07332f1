// Package telemetry owns the Prometheus metrics and the OpenTelemetry
// tracer provider of the blog.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkwell"

// Metrics holds the collectors exposed on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Comments *prometheus.CounterVec
	Shares   *prometheus.CounterVec
	Limited  *prometheus.CounterVec
}

// NewMetrics registers the blog collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_submitted_total",
			Help:      "Comment submissions by outcome.",
		}, []string{"result"}),
		Shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_total",
			Help:      "Share-by-email requests by outcome.",
		}, []string{"result"}),
		Limited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.Duration, m.Comments, m.Shares, m.Limited,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Outcome labels used by the comment and share counters.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultRejected = "rejected"
)

// CountComment records a comment submission outcome. A nil receiver is a no-op.
func (m *Metrics) CountComment(result string) {
	if m != nil {
		m.Comments.WithLabelValues(result).Inc()
	}
}

// CountShare records a share outcome. A nil receiver is a no-op.
func (m *Metrics) CountShare(result string) {
	if m != nil {
		m.Shares.WithLabelValues(result).Inc()
	}
}
