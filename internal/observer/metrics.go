package observer

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_outreach_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations, labeled by method, route and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_outreach_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"operation", "entity", "status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_outreach_emails_sent_total",
			Help: "Total number of emails accepted by the provider, labeled by history write outcome.",
		},
		[]string{"history_status"},
	)

	EmailSendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_outreach_email_send_failures_total",
			Help: "Total number of email sends rejected before or by the provider.",
		},
		[]string{"reason"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_outreach_webhook_events_total",
			Help: "Total number of provider webhook callbacks, labeled by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	GeocodeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_outreach_geocode_lookups_total",
			Help: "Total number of geocode lookups, labeled by source and result.",
		},
		[]string{"source", "result"},
	)

	GeocodePoolRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lead_outreach_geocode_pool_running",
		Help: "Current number of running geocode workers.",
	})

	ActivityPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_outreach_activity_publish_total",
			Help: "Total number of lead activity events published, labeled by type and status.",
		},
		[]string{"type", "status"},
	)

	// Global metrics instance
	Metrics *metricsStore
)

// Load generator metrics used by the webhook tester.
var (
	loadgenWebhooksAttemptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_webhooks_attempted_total",
			Help: "Total number of webhook deliveries attempted by the load generator.",
		},
		[]string{"event"},
	)
	loadgenWebhooksDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_webhooks_delivered_total",
			Help: "Total number of webhook deliveries answered, labeled by status code.",
		},
		[]string{"event", "status"},
	)
	loadgenWebhookErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_webhook_errors_total",
			Help: "Total number of webhook deliveries that failed at the transport level.",
		},
		[]string{"event"},
	)
)

type metricsStore struct{}

// InitMetrics toggles metric collection. Metrics are registered by promauto.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
	if !enabled {
		Metrics = nil
		return
	}
	Metrics = &metricsStore{}
}

// ObserveHTTPRequest records the duration of one handled request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDurationSeconds.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration of a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncEmailsSent counts a provider-accepted email by its history outcome.
func IncEmailsSent(historyStatus string) {
	if !metricsEnabled {
		return
	}
	EmailsSentTotal.WithLabelValues(historyStatus).Inc()
}

// IncEmailSendFailure counts a send that did not reach the provider or was rejected.
func IncEmailSendFailure(reason string) {
	if !metricsEnabled {
		return
	}
	EmailSendFailuresTotal.WithLabelValues(SanitizeErrorType(reason)).Inc()
}

// IncWebhookEvent counts a webhook callback outcome.
func IncWebhookEvent(event, outcome string) {
	if !metricsEnabled {
		return
	}
	if event == "" {
		event = "unknown"
	}
	WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// IncGeocodeLookup counts a geocode lookup by source (cache, upstream) and result.
func IncGeocodeLookup(source, result string) {
	if !metricsEnabled {
		return
	}
	GeocodeLookupsTotal.WithLabelValues(source, result).Inc()
}

// SetGeocodePoolRunning sets the number of busy geocode workers.
func SetGeocodePoolRunning(running int) {
	if !metricsEnabled {
		return
	}
	GeocodePoolRunning.Set(float64(running))
}

// IncActivityPublish counts a lead activity publish attempt.
func IncActivityPublish(activityType string, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = SanitizeErrorType(err.Error())
	}
	ActivityPublishTotal.WithLabelValues(activityType, status).Inc()
}

// SanitizeErrorType maps specific errors or provides a default category.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "database"), strings.Contains(lower, "sql"), strings.Contains(lower, "constraint"):
		return "database"
	case strings.Contains(lower, "validation failed"), strings.Contains(lower, "bad request"), strings.Contains(lower, "invalid"):
		return "validation"
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no rows"):
		return "not_found"
	case strings.Contains(lower, "upstream"), strings.Contains(lower, "mailgun"):
		return "upstream"
	case strings.Contains(lower, "nats"), strings.Contains(lower, "jetstream"):
		return "nats"
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}

// --- Load Generator Metric Helpers ---

// IncLoadgenWebhooksAttempted increments the counter for attempted webhook deliveries.
func IncLoadgenWebhooksAttempted(event string) {
	if Metrics != nil {
		loadgenWebhooksAttemptedTotal.WithLabelValues(event).Inc()
	}
}

// IncLoadgenWebhooksDelivered increments the counter for answered webhook deliveries.
func IncLoadgenWebhooksDelivered(event string, status int) {
	if Metrics != nil {
		loadgenWebhooksDeliveredTotal.WithLabelValues(event, strconv.Itoa(status)).Inc()
	}
}

// IncLoadgenWebhookErrors increments the counter for transport failures.
func IncLoadgenWebhookErrors(event string) {
	if Metrics != nil {
		loadgenWebhookErrorsTotal.WithLabelValues(event).Inc()
	}
}
