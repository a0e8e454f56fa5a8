// Package metrics exposes Prometheus collectors for the harvester service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	navigationsTotal           *prometheus.CounterVec
	navigationDurationSeconds  *prometheus.HistogramVec
	companiesTotal             *prometheus.CounterVec
	documentBytesTotal         prometheus.Counter
	uploadsTotal               *prometheus.CounterVec
	notificationsTotal         *prometheus.CounterVec
	grantsTotal                *prometheus.CounterVec
	activeRuns                 prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		navigationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_navigations_total",
				Help: "Total number of browser navigations, labeled by operation and status.",
			},
			[]string{"operation", "status"},
		)

		navigationDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_navigation_duration_seconds",
				Help:    "Histogram of browser navigation latencies, labeled by operation.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
			},
			[]string{"operation"},
		)

		companiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_companies_total",
				Help: "Total number of companies processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		documentBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_document_bytes_total",
				Help: "Total number of report document bytes downloaded.",
			},
		)

		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_uploads_total",
				Help: "Total number of archive uploads, labeled by status.",
			},
			[]string{"status"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_notifications_total",
				Help: "Total number of downstream notifications, labeled by status.",
			},
			[]string{"status"},
		)

		grantsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_grants_total",
				Help: "Total number of folder access grants, labeled by status.",
			},
			[]string{"status"},
		)

		activeRuns = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_runs",
				Help: "Number of pipeline runs currently executing.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveNavigation records one browser navigation.
func ObserveNavigation(operation string, ok bool, duration time.Duration) {
	Init()
	navigationsTotal.WithLabelValues(operation, statusLabel(ok)).Inc()
	navigationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCompany increments the company counter for the given outcome.
func ObserveCompany(outcome string) {
	Init()
	companiesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDocumentBytes adds downloaded document bytes.
func ObserveDocumentBytes(n int) {
	Init()
	if n > 0 {
		documentBytesTotal.Add(float64(n))
	}
}

// ObserveUpload records an archive upload attempt.
func ObserveUpload(ok bool) {
	Init()
	uploadsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// ObserveNotification records a downstream notification attempt.
func ObserveNotification(ok bool) {
	Init()
	notificationsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// ObserveGrant records a folder access grant attempt.
func ObserveGrant(ok bool) {
	Init()
	grantsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// IncActiveRuns increments the active runs gauge.
func IncActiveRuns() {
	Init()
	activeRuns.Inc()
}

// DecActiveRuns decrements the active runs gauge.
func DecActiveRuns() {
	Init()
	activeRuns.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
