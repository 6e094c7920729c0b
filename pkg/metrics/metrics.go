// Package metrics exposes Prometheus instrumentation for extraction runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the metric families tracked per extraction run.
type Collector struct {
	registry *prometheus.Registry

	// RecordsExtracted counts records emitted per stream
	RecordsExtracted *prometheus.CounterVec
	// PagesFetched counts index pages walked per stream
	PagesFetched *prometheus.CounterVec
	// RequestDuration observes HTTP request latency per endpoint class
	RequestDuration *prometheus.HistogramVec
	// RequestErrors counts failed HTTP requests by status class
	RequestErrors *prometheus.CounterVec
	// Retries counts retry attempts per stream
	Retries *prometheus.CounterVec
	// TokenRefreshes counts access token refreshes by outcome
	TokenRefreshes *prometheus.CounterVec
	// ActiveStreams tracks streams currently extracting
	ActiveStreams prometheus.Gauge
	// RecordsSkipped counts detail fetches that yielded no record
	RecordsSkipped *prometheus.CounterVec
}

var (
	defaultCollector *Collector
	once             sync.Once
)

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		RecordsExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syphon",
			Name:      "records_extracted_total",
			Help:      "Total records emitted per stream",
		}, []string{"stream"}),
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syphon",
			Name:      "pages_fetched_total",
			Help:      "Total index pages fetched per stream",
		}, []string{"stream"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "syphon",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syphon",
			Name:      "request_errors_total",
			Help:      "Failed HTTP requests by status class",
		}, []string{"kind", "class"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syphon",
			Name:      "retries_total",
			Help:      "Retry attempts per stream",
		}, []string{"stream"}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syphon",
			Name:      "token_refreshes_total",
			Help:      "Access token refreshes by outcome",
		}, []string{"outcome"}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "syphon",
			Name:      "active_streams",
			Help:      "Streams currently extracting",
		}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syphon",
			Name:      "records_skipped_total",
			Help:      "Detail fetches that yielded no record",
		}, []string{"stream"}),
	}
}

// Default returns the process-wide collector.
func Default() *Collector {
	once.Do(func() {
		defaultCollector = NewCollector()
	})
	return defaultCollector
}

// Handler returns an HTTP handler serving this collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StatusClass buckets an HTTP status for the error counter.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status == 429:
		return "429"
	case status >= 400:
		return "4xx"
	default:
		return "other"
	}
}
