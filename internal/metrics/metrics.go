// Package metrics provides Prometheus metrics for PulseBoard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pulseboard"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Checker metrics
var (
	// CheckerProbesTotal counts health-check probes by result.
	CheckerProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checker",
			Name:      "probes_total",
			Help:      "Total health-check probes",
		},
		[]string{"result"}, // up, degraded, down
	)

	// CheckerProbeDuration tracks probe latency.
	CheckerProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checker",
			Name:      "probe_duration_seconds",
			Help:      "Health-check probe latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// CheckerScheduledRules tracks rules with an active cron entry.
	CheckerScheduledRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "checker",
			Name:      "scheduled_rules",
			Help:      "Number of rules with an active check schedule",
		},
	)
)

// Alerting metrics
var (
	// AlertsEvaluatedTotal counts rule evaluations.
	AlertsEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "evaluations_total",
			Help:      "Total rule evaluations",
		},
	)

	// AlertsFiredTotal counts fired alerts by severity.
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "fired_total",
			Help:      "Total alerts fired",
		},
		[]string{"severity"},
	)

	// AlertsSuppressedTotal counts alerts suppressed by cooldown.
	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "suppressed_total",
			Help:      "Total alerts suppressed by cooldown",
		},
	)
)

// Notifier metrics
var (
	// NotificationsSentTotal counts sent notifications by channel type.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "sent_total",
			Help:      "Total notifications sent",
		},
		[]string{"type"}, // slack, email, webhook
	)

	// NotificationsDroppedTotal counts notifications dropped by rate limiting.
	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "dropped_total",
			Help:      "Total notifications dropped by rate limiting",
		},
	)

	// NotificationErrors counts notification send errors.
	NotificationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "errors_total",
			Help:      "Total notification send errors",
		},
		[]string{"type"},
	)
)

// Buffer metrics
var (
	// BufferPending tracks telemetry entries waiting to be flushed.
	BufferPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "pending_entries",
			Help:      "Telemetry entries waiting to be flushed to storage",
		},
	)

	// BufferDroppedTotal counts dropped entries due to backpressure.
	BufferDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "dropped_total",
			Help:      "Total entries dropped due to buffer overflow",
		},
	)

	// BufferFlushesTotal counts flush operations.
	BufferFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "flushes_total",
			Help:      "Total buffer flush operations",
		},
	)
)

// Storage metrics
var (
	// StorageQueryDuration tracks query latency.
	StorageQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Storage query latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "backend"},
	)

	// StorageErrors counts storage operation errors.
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total storage operation errors",
		},
		[]string{"operation", "backend"},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
