package app

import (
	"context"
	"log/slog"

	"alertbot/internal/domain"
	"alertbot/internal/format"
	"alertbot/internal/ingest"
	"alertbot/internal/metrics"
	"alertbot/internal/notify"
	"alertbot/internal/store"
)

// Pipeline turns webhook payloads into chat notifications and store state.
// Params: alert store, message formatter, chat sink, heartbeat alert name.
// Returns: ingest sink for the HTTP and NATS interfaces.
type Pipeline struct {
	store     *store.Store
	formatter *format.Formatter
	sink      notify.Sink
	logger    *slog.Logger
	deadman   string
}

// NewPipeline creates the notification pipeline.
// Params: store, formatter, sink, heartbeat alert name, and logger.
// Returns: initialized pipeline.
func NewPipeline(registry *store.Store, formatter *format.Formatter, sink notify.Sink, deadman string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     registry,
		formatter: formatter,
		sink:      sink,
		logger:    logger,
		deadman:   deadman,
	}
}

// Process handles one decoded webhook payload.
// Params: context and payload.
// Returns: outcome and always a nil error; send failures are isolated
// per severity group so one unreachable chat never blocks the remaining
// groups. An alert is recorded only after its group's message was
// delivered.
func (p *Pipeline) Process(ctx context.Context, payload domain.WebhookPayload) (ingest.Outcome, error) {
	if len(payload.Alerts) == 0 {
		return ingest.OutcomeNoAlerts, nil
	}
	alerts := p.filterHeartbeat(payload.Alerts)
	if len(alerts) == 0 {
		return ingest.OutcomeFiltered, nil
	}

	for _, group := range groupBySeverity(alerts) {
		text := p.formatter.Message(group, payload.Status)
		rows := p.formatter.Keyboard(group, payload.Status)
		if err := p.sink.Send(ctx, notify.Message{Text: text, Rows: rows}); err != nil {
			metrics.NotificationFailures.Inc()
			if p.logger != nil {
				p.logger.Error("notification send failed",
					"severity", group[0].Severity(),
					"alerts", len(group),
					"error", err.Error())
			}
			continue
		}
		metrics.NotificationsSent.Inc()
		for _, alert := range group {
			p.store.Upsert(alert, payload.Status)
			metrics.AlertsIngested.WithLabelValues(string(payload.Status), alert.Severity()).Inc()
		}
	}

	stats := p.store.Size()
	metrics.SetStoreSize(stats.Tracked, stats.Acked)
	return ingest.OutcomeOK, nil
}

// filterHeartbeat drops the watchdog heartbeat alert.
// Params: decoded alerts.
// Returns: alerts with the heartbeat removed.
func (p *Pipeline) filterHeartbeat(alerts []domain.Alert) []domain.Alert {
	if p.deadman == "" {
		return alerts
	}
	kept := make([]domain.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.Name() == p.deadman {
			metrics.AlertsFiltered.Inc()
			continue
		}
		kept = append(kept, alert)
	}
	return kept
}

// groupBySeverity splits alerts by severity keeping first-seen order.
// Params: filtered alerts.
// Returns: one slice per severity, ordered by first occurrence.
func groupBySeverity(alerts []domain.Alert) [][]domain.Alert {
	index := make(map[string]int)
	var groups [][]domain.Alert
	for _, alert := range alerts {
		severity := alert.Severity()
		slot, seen := index[severity]
		if !seen {
			slot = len(groups)
			index[severity] = slot
			groups = append(groups, nil)
		}
		groups[slot] = append(groups[slot], alert)
	}
	return groups
}
