package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	Expansions        *prometheus.CounterVec
	SuggestionLatency prometheus.Histogram
	Saves             *prometheus.CounterVec
	HistoryDepth      prometheus.Histogram
	OpenSessions      prometheus.Gauge

	// Command and query dispatch
	Dispatches       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Store metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace.
// Each collector has its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Expansions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expansions_total",
				Help:      "Total number of node expansions by outcome",
			},
			[]string{"outcome"},
		),
		SuggestionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "suggestion_request_duration_seconds",
				Help:      "Suggestion service round trip in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
			},
		),
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total number of map saves by outcome",
			},
			[]string{"outcome"},
		),
		HistoryDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "history_depth",
				Help:      "Number of undo states after each recorded mutation",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		OpenSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_sessions",
				Help:      "Number of mind maps currently held in memory",
			},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of dispatched commands and queries",
			},
			[]string{"bus", "type", "status"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Command and query handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"bus", "type"},
		),
		DBOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_operations_total",
				Help:      "Total number of database operations",
			},
			[]string{"operation", "status"},
		),
		DBDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_operation_duration_seconds",
				Help:      "Database operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Expansions,
		c.SuggestionLatency,
		c.Saves,
		c.HistoryDepth,
		c.OpenSessions,
		c.Dispatches,
		c.DispatchDuration,
		c.DBOperations,
		c.DBDuration,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordExpansion counts an expansion by outcome: suggested, fallback, throttled or failed
func (c *Collector) RecordExpansion(outcome string) {
	if c == nil {
		return
	}
	c.Expansions.WithLabelValues(outcome).Inc()
}

// ObserveSuggestionLatency records one suggestion round trip
func (c *Collector) ObserveSuggestionLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.SuggestionLatency.Observe(d.Seconds())
}

// RecordSave counts a save by outcome (created, updated, failed)
func (c *Collector) RecordSave(outcome string) {
	if c == nil {
		return
	}
	c.Saves.WithLabelValues(outcome).Inc()
}

// ObserveHistoryDepth records the history length after a mutation
func (c *Collector) ObserveHistoryDepth(n int) {
	if c == nil {
		return
	}
	c.HistoryDepth.Observe(float64(n))
}

// SessionOpened and SessionClosed track the open session gauge
func (c *Collector) SessionOpened() {
	if c != nil {
		c.OpenSessions.Inc()
	}
}

func (c *Collector) SessionClosed() {
	if c != nil {
		c.OpenSessions.Dec()
	}
}

// RecordDispatch records one command or query
func (c *Collector) RecordDispatch(bus, typ string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.Dispatches.WithLabelValues(bus, typ, status).Inc()
	c.DispatchDuration.WithLabelValues(bus, typ).Observe(duration.Seconds())
}

// RecordDBOperation records one store call
func (c *Collector) RecordDBOperation(operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.DBOperations.WithLabelValues(operation, status).Inc()
	c.DBDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit and RecordCacheMiss count cache lookups
func (c *Collector) RecordCacheHit() {
	if c != nil {
		c.CacheHits.Inc()
	}
}

func (c *Collector) RecordCacheMiss() {
	if c != nil {
		c.CacheMisses.Inc()
	}
}
