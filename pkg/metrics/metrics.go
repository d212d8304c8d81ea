// Package metrics collects and exposes Prometheus metrics for the HTTP
// surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the HTTP middleware records through.
type Recorder interface {
	RequestStarted()
	RecordRequest(method string, statusCode int, duration time.Duration)
}

// Collector implements Recorder on a Prometheus registry.
type Collector struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestsInFlight  prometheus.Gauge
	writesThrottled   prometheus.Counter
	permissionDenials prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collab3d_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collab3d_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collab3d_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		writesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collab3d_writes_throttled_total",
			Help: "Write requests rejected by the per-user rate limiter.",
		}),
		permissionDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collab3d_permission_denials_total",
			Help: "Requests rejected with 403 by role checks.",
		}),
	}

	reg.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.requestsInFlight,
		c.writesThrottled,
		c.permissionDenials,
	)

	return c
}

// RequestStarted marks a request entering the handler chain.
func (c *Collector) RequestStarted() {
	c.requestsInFlight.Inc()
}

// RecordRequest records a finished request. Throttle and denial counters are
// derived from the status code so the middleware stays the single
// instrumentation point.
func (c *Collector) RecordRequest(method string, statusCode int, duration time.Duration) {
	c.requestsInFlight.Dec()
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())

	switch statusCode {
	case http.StatusTooManyRequests:
		c.writesThrottled.Inc()
	case http.StatusForbidden:
		c.permissionDenials.Inc()
	}
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
