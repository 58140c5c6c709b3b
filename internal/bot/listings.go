package bot

import (
	"fmt"
	"strings"

	"alertbot/internal/domain"
	"alertbot/internal/format"
	"alertbot/internal/store"
)

const (
	maxListedFiring   = 10
	maxHistoryPerSide = 5
)

// ActiveAlerts renders the firing alert listing.
// Params: alert store.
// Returns: HTML body.
func ActiveAlerts(registry *store.Store) string {
	firing := registry.ListByStatus(domain.StatusFiring)
	if len(firing) == 0 {
		return "✅ <b>No Active Alerts</b>\n\nAll systems are running normally."
	}

	lines := []string{fmt.Sprintf("🔔 <b>Active Alerts</b> (%d)", len(firing)), ""}
	for i, record := range firing {
		if i == maxListedFiring {
			lines = append(lines, fmt.Sprintf("  <i>... and %d more</i>", len(firing)-maxListedFiring))
			break
		}
		emoji := format.SeverityEmoji(record.Alert.Severity())
		lines = append(lines, fmt.Sprintf("  %s %s <code>%s</code>", emoji, displayName(record), record.Fingerprint))
		if instance := record.Alert.Instance(); instance != "" {
			lines = append(lines, fmt.Sprintf("      └ %s", instance))
		}
	}
	return strings.Join(lines, "\n")
}

// History renders the tracked alert history grouped by status.
// Params: alert store.
// Returns: HTML body with ack markers and resolution times.
func History(registry *store.Store) string {
	if registry.Size().Tracked == 0 {
		return "📜 Alert history is empty"
	}

	firing := registry.ListByStatus(domain.StatusFiring)
	resolved := registry.ListByStatus(domain.StatusResolved)

	lines := []string{"📜 <b>Alert History</b>", ""}
	if len(firing) > 0 {
		lines = append(lines, fmt.Sprintf("<b>🔥 Active (%d)</b>", len(firing)))
		for i, record := range firing {
			if i == maxHistoryPerSide {
				break
			}
			marker := "⏳"
			if registry.Acked(record.Fingerprint) {
				marker = "✅"
			}
			lines = append(lines, fmt.Sprintf("  %s <code>%s</code> %s", marker, record.Fingerprint, displayName(record)))
			lines = append(lines, fmt.Sprintf("     └ %s", record.ReceivedAt.Format("2006-01-02 15:04")))
		}
	}
	if len(resolved) > 0 {
		if len(firing) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, fmt.Sprintf("<b>✅ Resolved (%d)</b>", len(resolved)))
		for i, record := range resolved {
			if i == maxHistoryPerSide {
				break
			}
			lines = append(lines, fmt.Sprintf("  • <code>%s</code> %s", record.Fingerprint, displayName(record)))
			if record.ResolvedAt != nil {
				lines = append(lines, fmt.Sprintf("     └ Resolved: %s", record.ResolvedAt.Format("2006-01-02 15:04")))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// displayName extracts a display name from one record.
// Params: store record.
// Returns: alert name or "?".
func displayName(record store.Record) string {
	if name := record.Alert.Name(); name != "" {
		return name
	}
	return "?"
}
