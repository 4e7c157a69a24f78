package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API: HTTP
// request metrics, access-cache effectiveness and notification fan-out
// outcomes (the observable side-effect results of content events).
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	fanoutDelivered prometheus.Counter
	fanoutSkipped   prometheus.Counter
	fanoutFailed    prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	fanoutDelivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_fanout_delivered_total",
		Help: "Notifications written by content event fan-out",
	})

	fanoutSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_fanout_skipped_total",
		Help: "Fan-out invocations that resolved to no recipients",
	})

	fanoutFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_fanout_failed_total",
		Help: "Fan-out invocations swallowed after a write failure",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_cache_hits_total",
		Help: "Access gate decisions served from cache",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_cache_misses_total",
		Help: "Access gate decisions resolved against the database",
	})

	registry.MustRegister(requestDuration, requestTotal, fanoutDelivered, fanoutSkipped, fanoutFailed, cacheHits, cacheMisses)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		fanoutDelivered: fanoutDelivered,
		fanoutSkipped:   fanoutSkipped,
		fanoutFailed:    fanoutFailed,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records duration and count for a completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveFanout records the outcome of a notification fan-out invocation.
func (s *MetricsService) ObserveFanout(delivered int, failed bool) {
	if s == nil {
		return
	}
	switch {
	case failed:
		s.fanoutFailed.Inc()
	case delivered == 0:
		s.fanoutSkipped.Inc()
	default:
		s.fanoutDelivered.Add(float64(delivered))
	}
}

// ObserveAccessCache records an access gate cache lookup outcome.
func (s *MetricsService) ObserveAccessCache(hit bool) {
	if s == nil {
		return
	}
	if hit {
		s.cacheHits.Inc()
		return
	}
	s.cacheMisses.Inc()
}
