package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Document store metrics
	StoreErrors *prometheus.CounterVec

	// Outbound notification metrics
	NotificationsTotal *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec

	// Doctor profile cache
	DoctorCacheLookups *prometheus.CounterVec
}

// Default is registered on the default prometheus registry and served on /metrics.
var Default = NewMetrics("sigma", "api")

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_errors_total",
			Help:      "Document store failures recovered by the repositories",
		}, []string{"collection", "operation"}),

		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Outbound recruitment notifications by channel and outcome",
		}, []string{"channel", "status"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Domain events handed to the broker",
		}, []string{"event_type", "status"}),

		DoctorCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "doctor_cache_lookups_total",
			Help:      "Doctor profile lookups by cache result",
		}, []string{"result"}),
	}
}

func RecordStoreError(collection, operation string) {
	Default.StoreErrors.WithLabelValues(collection, operation).Inc()
}

func RecordNotification(channel, status string) {
	Default.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

func RecordEvent(eventType, status string) {
	Default.EventsPublished.WithLabelValues(eventType, status).Inc()
}

func RecordDoctorLookup(result string) {
	Default.DoctorCacheLookups.WithLabelValues(result).Inc()
}
