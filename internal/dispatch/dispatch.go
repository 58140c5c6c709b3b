package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"alertbot/internal/audit"
	"alertbot/internal/domain"
	containerruntime "alertbot/internal/runtime"
	"alertbot/internal/silence"
	"alertbot/internal/store"
)

// defaultEscalationMessage is recorded when the operator gives none.
const defaultEscalationMessage = "Escalated via chat"

// SilenceCreator submits silences to the external silence API.
// Params: context, matchers, window duration, and comment.
// Returns: opaque silence identifier or upstream error.
type SilenceCreator interface {
	Create(ctx context.Context, matchers []silence.Matcher, duration time.Duration, comment string) (string, error)
}

// AuditSink records escalation entries.
// Params: one audit entry.
// Returns: append error for local logging.
type AuditSink interface {
	Append(entry audit.Entry) error
}

// ContainerRestarter restarts containers on operator request.
// Params: context and container name.
// Returns: runtime error, including a not-found sentinel.
type ContainerRestarter interface {
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (string, error)
}

// Dispatcher executes operator commands against the store and upstreams.
// Params: alert store, silence API, audit sink, optional container runtime.
// Returns: operator-facing reply text for every command; no command is
// allowed to escape as a panic or unhandled error.
type Dispatcher struct {
	store    *store.Store
	silences SilenceCreator
	auditLog AuditSink
	runtime  ContainerRestarter
	logger   *slog.Logger
	now      func() time.Time
	actor    string
}

// New creates the command dispatcher.
// Params: store, silence client, audit sink, container runtime (nil when
// disabled), logger, now function, and actor identity for audit entries.
// Returns: initialized dispatcher.
func New(
	registry *store.Store,
	silences SilenceCreator,
	auditLog AuditSink,
	containerRuntime ContainerRestarter,
	logger *slog.Logger,
	now func() time.Time,
	actor string,
) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:    registry,
		silences: silences,
		auditLog: auditLog,
		runtime:  containerRuntime,
		logger:   logger,
		now:      now,
		actor:    actor,
	}
}

// Execute runs one command variant and renders the operator reply.
// Params: context and parsed command.
// Returns: HTML reply text; failures are translated, never propagated.
func (d *Dispatcher) Execute(ctx context.Context, command Command) string {
	switch cmd := command.(type) {
	case Ack:
		return d.acknowledge(cmd)
	case Silence:
		return d.silenceAlert(ctx, cmd)
	case Snooze:
		return d.snooze(ctx, cmd)
	case Escalate:
		return d.escalate(cmd)
	case Resolve:
		return d.resolve(cmd)
	case Restart:
		return d.restart(ctx, cmd)
	case ClearHistory:
		d.store.Clear()
		return "🗑️ Alert history cleared"
	default:
		return "❓ Unknown command"
	}
}

// acknowledge handles the ack command and its listing form.
// Params: ack variant.
// Returns: confirmation or recent-alert listing.
func (d *Dispatcher) acknowledge(cmd Ack) string {
	if cmd.Fingerprint == "" {
		records := d.store.ListAll()
		if len(records) == 0 {
			return "ℹ️ No alerts to acknowledge"
		}
		lines := []string{"🔔 <b>Recent Alerts</b>", ""}
		for i, record := range records {
			if i == 10 {
				break
			}
			marker := "⏳"
			if d.store.Acked(record.Fingerprint) {
				marker = "✅"
			}
			lines = append(lines, fmt.Sprintf("%s <code>%s</code> - %s", marker, record.Fingerprint, recordName(record)))
		}
		lines = append(lines, "", "<i>Usage: /ack &lt;fingerprint&gt;</i>")
		return strings.Join(lines, "\n")
	}

	d.store.Acknowledge(cmd.Fingerprint)
	return fmt.Sprintf("✅ Alert <code>%s</code> acknowledged", cmd.Fingerprint)
}

// silenceAlert handles the silence command.
// Params: silence variant with alert name and hour duration.
// Returns: silence id confirmation, usage text, or upstream failure text.
func (d *Dispatcher) silenceAlert(ctx context.Context, cmd Silence) string {
	if cmd.AlertName == "" || cmd.Duration == "" {
		return "❓ Usage: /silence &lt;alertname&gt; &lt;duration&gt;\n" +
			"Example: /silence HighCPU 2h\n" +
			"Duration: 1h, 2h, 4h, 8h, 24h"
	}

	duration, err := parseSilenceDuration(cmd.Duration)
	if err != nil {
		return "❌ Invalid duration format. Example: 1h, 2h, 4h"
	}

	hours := int(duration.Hours())
	matchers := []silence.Matcher{silence.EqualMatcher(domain.LabelAlertName, cmd.AlertName)}
	comment := fmt.Sprintf("Silenced via /silence command for %dh", hours)
	id, err := d.silences.Create(ctx, matchers, duration, comment)
	if err != nil {
		return d.silenceFailure("Failed to create silence", err)
	}

	return fmt.Sprintf("🔕 <b>%s</b> silenced for %d hours\nID: <code>%s</code>", cmd.AlertName, hours, id)
}

// snooze handles the snooze command.
// Params: snooze variant with duration and optional alert name.
// Returns: confirmation, usage text, or upstream failure text. Snoozing
// all alerts inverts the matcher so critical alerts are never silenced.
func (d *Dispatcher) snooze(ctx context.Context, cmd Snooze) string {
	if cmd.Duration == "" {
		return "💤 <b>Snooze</b>\n\n" +
			"Usage: /snooze &lt;duration&gt; [alertname]\n\n" +
			"Examples:\n" +
			"• /snooze 30m - Snooze all for 30 minutes\n" +
			"• /snooze 2h HighCPU - Snooze one alert for 2 hours\n\n" +
			"Durations: 15m, 30m, 1h, 2h, 4h, 8h, 24h"
	}

	duration, err := parseSnoozeDuration(cmd.Duration)
	if err != nil {
		return "❌ Invalid duration format. Example: 30m, 2h"
	}

	var matchers []silence.Matcher
	if cmd.AlertName != "" {
		matchers = []silence.Matcher{silence.EqualMatcher(domain.LabelAlertName, cmd.AlertName)}
	} else {
		matchers = []silence.Matcher{silence.NotEqualMatcher(domain.LabelSeverity, "critical")}
	}

	comment := fmt.Sprintf("Snoozed via /snooze for %s", cmd.Duration)
	if _, err := d.silences.Create(ctx, matchers, duration, comment); err != nil {
		return d.silenceFailure("Snooze failed", err)
	}

	target := cmd.AlertName
	if target == "" {
		target = "all alerts"
	}
	ends := d.now().Add(duration).Format("15:04")
	return fmt.Sprintf("💤 <b>%s</b> snoozed for %s\n⏰ Ends: %s", target, cmd.Duration, ends)
}

// escalate handles the escalate command and its help form.
// Params: escalate variant with fingerprint and optional message.
// Returns: confirmation with a caveat when the audit append failed.
func (d *Dispatcher) escalate(cmd Escalate) string {
	if cmd.Fingerprint == "" {
		return "🚨 <b>Escalate</b>\n\n" +
			"Usage: /escalate &lt;fingerprint&gt; [message]\n\n" +
			"Example:\n" +
			"• /escalate abc123 Urgent intervention needed\n\n" +
			"Use /alerts to get alert fingerprints."
	}

	message := cmd.Message
	if message == "" {
		message = defaultEscalationMessage
	}

	escalatedAt := d.now()
	appendErr := d.auditLog.Append(audit.Entry{
		Timestamp:   escalatedAt,
		Fingerprint: cmd.Fingerprint,
		Actor:       d.actor,
		Message:     message,
	})
	if appendErr != nil && d.logger != nil {
		d.logger.Error("escalation audit append failed", "fingerprint", cmd.Fingerprint, "error", appendErr.Error())
	}

	reply := fmt.Sprintf("🚨 <b>Alert Escalated</b>\n\n"+
		"Fingerprint: <code>%s</code>\n"+
		"Message: %s\n"+
		"Time: %s\n\n"+
		"<i>Escalation logged. On-call team notified.</i>",
		cmd.Fingerprint, message, escalatedAt.Format("15:04:05"))
	if appendErr != nil {
		reply += "\n\n⚠️ <i>Audit log write failed; entry kept in service log.</i>"
	}
	return reply
}

// resolve handles the resolve command and its listing form.
// Params: resolve variant.
// Returns: confirmation with re-fire caveat, not-found text, or listing.
func (d *Dispatcher) resolve(cmd Resolve) string {
	if cmd.Fingerprint == "" {
		firing := d.store.ListByStatus(domain.StatusFiring)
		if len(firing) == 0 {
			return "✅ No active alerts to resolve"
		}
		lines := []string{"🔧 <b>Resolvable Alerts</b>", ""}
		for i, record := range firing {
			if i == 10 {
				break
			}
			lines = append(lines, fmt.Sprintf("• <code>%s</code> - %s", record.Fingerprint, recordName(record)))
		}
		lines = append(lines, "", "<i>Usage: /resolve &lt;fingerprint&gt;</i>")
		return strings.Join(lines, "\n")
	}

	if err := d.store.MarkResolved(cmd.Fingerprint, d.actor); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("❌ Alert not found: %s", cmd.Fingerprint)
		}
		if d.logger != nil {
			d.logger.Error("resolve failed", "fingerprint", cmd.Fingerprint, "error", err.Error())
		}
		return fmt.Sprintf("❌ Failed to resolve %s", cmd.Fingerprint)
	}

	return fmt.Sprintf("✅ Alert <code>%s</code> marked as resolved\n\n"+
		"<i>Note: If the alert persists upstream, it may re-trigger.</i>", cmd.Fingerprint)
}

// restart handles the restart command against the container runtime.
// Params: restart variant with container name.
// Returns: restart confirmation with the post-restart status.
func (d *Dispatcher) restart(ctx context.Context, cmd Restart) string {
	if cmd.Container == "" {
		return "❓ Usage: /restart &lt;container_name&gt;"
	}
	if d.runtime == nil {
		return "❌ Container runtime is not configured"
	}

	if err := d.runtime.Restart(ctx, cmd.Container); err != nil {
		if errors.Is(err, containerruntime.ErrNotFound) {
			return fmt.Sprintf("❌ Container not found: %s", cmd.Container)
		}
		if d.logger != nil {
			d.logger.Error("container restart failed", "container", cmd.Container, "error", err.Error())
		}
		return fmt.Sprintf("❌ Restart failed: %s", err.Error())
	}

	status, err := d.runtime.Status(ctx, cmd.Container)
	if err != nil || status != "running" {
		return fmt.Sprintf("⚠️ <b>%s</b> status: %s", cmd.Container, statusOrUnknown(status, err))
	}
	return fmt.Sprintf("✅ <b>%s</b> restarted successfully!", cmd.Container)
}

// silenceFailure translates silence API failures to operator text.
// Params: action prefix and upstream/transport error.
// Returns: upstream body verbatim when present, generic text otherwise.
func (d *Dispatcher) silenceFailure(prefix string, err error) string {
	var upstream *silence.UpstreamError
	if errors.As(err, &upstream) {
		body := strings.TrimSpace(upstream.Body)
		if body == "" {
			body = fmt.Sprintf("status %d", upstream.StatusCode)
		}
		return fmt.Sprintf("❌ %s: %s", prefix, body)
	}
	if d.logger != nil {
		d.logger.Error("silence api call failed", "error", err.Error())
	}
	return fmt.Sprintf("❌ %s: upstream is unreachable", prefix)
}

// recordName extracts a display name from one record.
// Params: store record.
// Returns: alert name or "?".
func recordName(record store.Record) string {
	if name := record.Alert.Name(); name != "" {
		return name
	}
	return "?"
}

// statusOrUnknown renders a post-restart status.
// Params: status string and read error.
// Returns: status or "unknown".
func statusOrUnknown(status string, err error) string {
	if err != nil || status == "" {
		return "unknown"
	}
	return status
}
