// Package metrics exposes Prometheus instrumentation for the proxy.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the proxy's Prometheus metrics. It satisfies the
// recorder interfaces consumed by the aggregation service and routes.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	upstreamStatus     *prometheus.CounterVec
	aggregationLatency prometheus.Histogram
	streamClients      prometheus.Gauge
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotify_proxy_requests_total",
			Help: "Activity requests served, by outcome.",
		}, []string{"outcome"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotify_proxy_upstream_responses_total",
			Help: "Spotify Web API responses, by HTTP status code.",
		}, []string{"code"}),
		aggregationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotify_proxy_aggregation_duration_seconds",
			Help:    "Time to assemble a full activity aggregation.",
			Buckets: prometheus.DefBuckets,
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spotify_proxy_stream_clients",
			Help: "Currently connected now-playing stream clients.",
		}),
	}

	registry.MustRegister(c.requestsTotal, c.upstreamStatus, c.aggregationLatency, c.streamClients)
	return c
}

// RecordRequest counts one served activity request by outcome.
func (c *Collector) RecordRequest(outcome string) {
	c.requestsTotal.WithLabelValues(outcome).Inc()
}

// RecordUpstreamStatus counts one upstream response by status code.
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveAggregationLatency records the duration of one aggregation.
func (c *Collector) ObserveAggregationLatency(d time.Duration) {
	c.aggregationLatency.Observe(d.Seconds())
}

// SetStreamClients records the current stream client count.
func (c *Collector) SetStreamClients(n int) {
	c.streamClients.Set(float64(n))
}

// Handler serves the metrics in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
