// Package observability provides Prometheus metrics for the assistant
// service.
//
// Metrics are exposed via the /metrics endpoint. All metric operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "facilitydesk"

// Metrics holds all Prometheus metrics for the assistant service.
// Initialize once at startup via InitMetrics().
type Metrics struct {
	// ChatRequestsTotal counts chat requests by status.
	// Labels: status (success, invalid_request, not_found, unauthorized, error)
	ChatRequestsTotal *prometheus.CounterVec

	// ChatDurationSeconds measures end-to-end chat handling duration,
	// including the upstream model call.
	// Labels: backend (openai, anthropic)
	ChatDurationSeconds *prometheus.HistogramVec

	// RolloverRunsTotal counts maintenance rollover runs by trigger and
	// status. Labels: trigger (http, scheduler), status (success, error)
	RolloverRunsTotal *prometheus.CounterVec

	// TicketsCreatedTotal counts maintenance tickets created by rollover
	// runs.
	TicketsCreatedTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics with the default Prometheus
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		ChatRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "chat",
				Name:      "requests_total",
				Help:      "Total number of chat requests by status",
			},
			[]string{"status"},
		),

		ChatDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "chat",
				Name:      "duration_seconds",
				Help:      "End-to-end chat handling duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"backend"},
		),

		RolloverRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "maintenance",
				Name:      "rollover_runs_total",
				Help:      "Total maintenance rollover runs by trigger and status",
			},
			[]string{"trigger", "status"},
		),

		TicketsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "maintenance",
				Name:      "tickets_created_total",
				Help:      "Total maintenance tickets created by rollover runs",
			},
		),
	}
	return DefaultMetrics
}

// RecordChatStatus increments the chat request counter if metrics are
// initialized. Safe to call from tests where InitMetrics was never run.
func RecordChatStatus(status string) {
	if DefaultMetrics != nil {
		DefaultMetrics.ChatRequestsTotal.WithLabelValues(status).Inc()
	}
}

// RecordRolloverRun increments the rollover run counter if metrics are
// initialized.
func RecordRolloverRun(trigger, status string) {
	if DefaultMetrics != nil {
		DefaultMetrics.RolloverRunsTotal.WithLabelValues(trigger, status).Inc()
	}
}

// RecordTicketsCreated adds to the created-ticket counter if metrics are
// initialized.
func RecordTicketsCreated(n int) {
	if DefaultMetrics != nil && n > 0 {
		DefaultMetrics.TicketsCreatedTotal.Add(float64(n))
	}
}
