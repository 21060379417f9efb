// Package metrics exposes Prometheus collectors for HTTP traffic and contact intake.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace        = "societyhub"
	unmatchedPathTag = "unmatched"
)

// Collectors owns a dedicated registry so tests and multiple servers never collide.
type Collectors struct {
	registry             *prometheus.Registry
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	rateLimitRejections  *prometheus.CounterVec
	notificationOutcomes *prometheus.CounterVec
}

// NewCollectors registers the HTTP, rate-limit and notification collectors plus the Go runtime collectors.
func NewCollectors() *Collectors {
	registry := prometheus.NewRegistry()
	collectorSet := &Collectors{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		rateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Attempts refused by a rate limiter",
			},
			[]string{"scope"},
		),
		notificationOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contact_notifications_total",
				Help:      "Contact notification attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectorSet.httpRequestsTotal,
		collectorSet.httpRequestDuration,
		collectorSet.httpRequestsInFlight,
		collectorSet.rateLimitRejections,
		collectorSet.notificationOutcomes,
	)
	return collectorSet
}

// Middleware records request counts, durations and in-flight requests keyed by the matched route.
func (collectorSet *Collectors) Middleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		if collectorSet == nil {
			context.Next()
			return
		}
		start := time.Now()
		collectorSet.httpRequestsInFlight.Inc()
		defer collectorSet.httpRequestsInFlight.Dec()

		context.Next()

		path := context.FullPath()
		if path == "" {
			path = unmatchedPathTag
		}
		status := strconv.Itoa(context.Writer.Status())
		collectorSet.httpRequestsTotal.WithLabelValues(context.Request.Method, path, status).Inc()
		collectorSet.httpRequestDuration.WithLabelValues(context.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (collectorSet *Collectors) Handler() http.Handler {
	if collectorSet == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(collectorSet.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for scraping and tests.
func (collectorSet *Collectors) Gatherer() prometheus.Gatherer {
	return collectorSet.registry
}

// RecordRateLimitRejection counts an attempt refused by the limiter for the scope.
func (collectorSet *Collectors) RecordRateLimitRejection(scope string) {
	if collectorSet == nil {
		return
	}
	collectorSet.rateLimitRejections.WithLabelValues(scope).Inc()
}

// RecordNotificationOutcome counts one notification attempt.
func (collectorSet *Collectors) RecordNotificationOutcome(outcome string) {
	if collectorSet == nil {
		return
	}
	collectorSet.notificationOutcomes.WithLabelValues(outcome).Inc()
}
