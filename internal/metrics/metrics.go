// Package metrics exposes self-monitoring counters for the alert service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Webhook ingestion metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbot_webhooks_received_total",
			Help: "Total number of webhook payloads received",
		},
		[]string{"source", "result"}, // http/nats, ok/rejected
	)

	AlertsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbot_alerts_ingested_total",
			Help: "Total number of alerts accepted after filtering",
		},
		[]string{"status", "severity"},
	)

	AlertsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertbot_alerts_filtered_total",
			Help: "Total number of heartbeat alerts dropped by the filter",
		},
	)

	// Notification delivery metrics
	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertbot_notifications_sent_total",
			Help: "Total number of chat messages delivered",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertbot_notification_failures_total",
			Help: "Total number of chat messages that failed to send",
		},
	)

	// Operator command metrics
	CommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbot_commands_executed_total",
			Help: "Total number of operator commands executed",
		},
		[]string{"command"},
	)

	// Store gauges, refreshed after every mutation
	AlertsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alertbot_alerts_tracked",
			Help: "Number of alerts currently tracked in memory",
		},
	)

	AlertsAcked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alertbot_alerts_acked",
			Help: "Number of acknowledged alert fingerprints",
		},
	)
)

// Handler returns the scrape endpoint handler.
// Params: none.
// Returns: promhttp handler over the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetStoreSize refreshes the tracked and acked gauges.
// Params: tracked and acked counts.
// Returns: nothing.
func SetStoreSize(tracked, acked int) {
	AlertsTracked.Set(float64(tracked))
	AlertsAcked.Set(float64(acked))
}
