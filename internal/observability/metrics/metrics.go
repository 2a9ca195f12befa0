package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "respcare_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	observationsTotal *prometheus.CounterVec

	persistTotal   *prometheus.CounterVec
	persistLatency *prometheus.HistogramVec

	alertEventsTotal *prometheus.CounterVec

	notifyTotal *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers service metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		observationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "observations_recorded_total",
				Help: "Total observations recorded by signal type and severity zone",
			},
			[]string{"type", "zone"},
		)

		persistTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "persist_total",
				Help: "Total persistence saves by backend and result",
			},
			[]string{"backend", "result"},
		)
		persistLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "persist_latency_seconds",
				Help:    "Persistence save latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "result"},
		)

		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by event and alert code",
			},
			[]string{"event", "code"},
		)

		notifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total outbound alert notifications by result",
			},
			[]string{"result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		prometheus.MustRegister(
			observationsTotal,
			persistTotal,
			persistLatency,
			alertEventsTotal,
			notifyTotal,
			httpRequests,
			httpLatency,
		)
	})
}

// IncObservation counts a recorded observation.
func IncObservation(signal, zone string) {
	if signal == "" {
		signal = "unknown"
	}
	if observationsTotal != nil {
		observationsTotal.WithLabelValues(signal, zone).Inc()
	}
}

// ObservePersist records a save attempt.
func ObservePersist(backend, result string, duration time.Duration) {
	if backend == "" {
		backend = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if persistTotal != nil {
		persistTotal.WithLabelValues(backend, result).Inc()
	}
	if persistLatency != nil {
		persistLatency.WithLabelValues(backend, result).Observe(duration.Seconds())
	}
}

// IncAlertEvent counts raised/resolved alerts.
func IncAlertEvent(event, code string) {
	if event == "" {
		event = "unknown"
	}
	if alertEventsTotal != nil {
		alertEventsTotal.WithLabelValues(event, code).Inc()
	}
}

// IncNotification counts outbound notifications.
func IncNotification(result string) {
	if result == "" {
		result = "unknown"
	}
	if notifyTotal != nil {
		notifyTotal.WithLabelValues(result).Inc()
	}
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, status string, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	NotifySent       = "sent"
	NotifySuppressed = "suppressed"
	NotifyFailed     = "failed"
)
