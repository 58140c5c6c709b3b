package format

import (
	"fmt"
	"strings"
	"time"

	"alertbot/internal/domain"
)

const (
	// maxDetailedAlerts caps the per-message detail section.
	maxDetailedAlerts = 5
	// maxDescriptionLen truncates long annotation text.
	maxDescriptionLen = 200
)

// severityStyle pairs one severity key with its rendering.
// Params: header emoji and title.
// Returns: fixed severity presentation.
type severityStyle struct {
	Emoji string
	Title string
}

// categoryStyle pairs one category key with its rendering.
// Params: icon and display name.
// Returns: fixed category presentation.
type categoryStyle struct {
	Icon string
	Name string
}

var severityStyles = map[string]severityStyle{
	"critical": {Emoji: "🚨", Title: "CRITICAL"},
	"warning":  {Emoji: "⚠️", Title: "WARNING"},
	"info":     {Emoji: "ℹ️", Title: "INFO"},
}

var categoryStyles = map[string]categoryStyle{
	"host":           {Icon: "🖥️", Name: "Host"},
	"container":      {Icon: "🐳", Name: "Container"},
	"database":       {Icon: "🗄️", Name: "Database"},
	"infrastructure": {Icon: "🌐", Name: "Infrastructure"},
	"ssl":            {Icon: "🔒", Name: "SSL"},
	"availability":   {Icon: "📡", Name: "Availability"},
	"monitoring":     {Icon: "📊", Name: "Monitoring"},
	"project":        {Icon: "📁", Name: "Project"},
	"backup":         {Icon: "💾", Name: "Backup"},
}

// severityFor resolves severity rendering with warning fallback.
// Params: severity label value.
// Returns: style entry, never missing.
func severityFor(severity string) severityStyle {
	if style, ok := severityStyles[severity]; ok {
		return style
	}
	return severityStyles["warning"]
}

// SeverityEmoji returns the marker emoji for one severity value.
// Params: severity label value.
// Returns: emoji with warning fallback.
func SeverityEmoji(severity string) string {
	return severityFor(severity).Emoji
}

// categoryFor resolves category rendering with a generic fallback.
// Params: category label value.
// Returns: style entry echoing unknown keys as their own name.
func categoryFor(category string) categoryStyle {
	if category == "" {
		category = "unknown"
	}
	if style, ok := categoryStyles[category]; ok {
		return style
	}
	return categoryStyle{Icon: "📋", Name: category}
}

// Links resolves static runbook and dashboard URLs.
// Params: base URLs and per-key override tables.
// Returns: lookup helpers with default fallbacks.
type Links struct {
	RunbookBase string
	Runbooks    map[string]string
	GrafanaBase string
	Dashboards  map[string]string
}

// RunbookURL returns the runbook link for one alert name.
// Params: alertname label value.
// Returns: override URL or the base as default.
func (l Links) RunbookURL(alertname string) string {
	if url, ok := l.Runbooks[alertname]; ok {
		return url
	}
	return l.RunbookBase
}

// DashboardURL returns the dashboard link for one category.
// Params: category label value.
// Returns: mapped dashboard, the "default" mapping, or the Grafana base.
func (l Links) DashboardURL(category string) string {
	if uid, ok := l.Dashboards[category]; ok {
		return l.GrafanaBase + "/d/" + uid
	}
	if uid, ok := l.Dashboards["default"]; ok {
		return l.GrafanaBase + "/d/" + uid
	}
	return l.GrafanaBase
}

// Button is one offered notification action.
// Params: visible label plus either callback data or a static URL.
// Returns: transport-neutral action descriptor.
type Button struct {
	Label    string
	Callback string
	URL      string
}

// Row is one horizontal button group.
type Row []Button

// Formatter turns delivery batches into notification bodies and actions.
// Params: link tables and injected clock.
// Returns: pure rendering helpers.
type Formatter struct {
	links Links
	now   func() time.Time
}

// New creates a formatter.
// Params: link tables and now function (defaults to time.Now when nil).
// Returns: initialized formatter.
func New(links Links, now func() time.Time) *Formatter {
	if now == nil {
		now = time.Now
	}
	return &Formatter{links: links, now: now}
}

// Message renders one severity group into an HTML notification body.
// Params: non-empty ordered batch slice and batch status.
// Returns: rendered body, "" for an empty batch.
func (f *Formatter) Message(alerts []domain.Alert, status domain.AlertStatus) string {
	if len(alerts) == 0 {
		return ""
	}

	first := alerts[0]
	severity := severityFor(first.Severity())
	category := categoryFor(first.Category())
	firing := status == domain.StatusFiring
	count := len(alerts)

	var header string
	if firing {
		header = fmt.Sprintf("%s <b>%s</b>", severity.Emoji, severity.Title)
	} else {
		header = "✅ <b>RESOLVED</b>"
	}
	if count > 1 {
		header += fmt.Sprintf(" (%d alerts)", count)
	}

	lines := []string{header, ""}
	lines = append(lines, fmt.Sprintf("%s <b>Category:</b> %s", category.Icon, category.Name))
	lines = append(lines, fmt.Sprintf("🕐 <b>Time:</b> %s", f.now().Format("15:04:05")))
	lines = append(lines, "")

	detailed := alerts
	if len(detailed) > maxDetailedAlerts {
		detailed = detailed[:maxDetailedAlerts]
	}
	for i, alert := range detailed {
		name := alert.Name()
		if name == "" {
			name = "Unknown"
		}
		if count > 1 {
			lines = append(lines, fmt.Sprintf("<b>#%d %s</b>", i+1, name))
		} else {
			lines = append(lines, fmt.Sprintf("<b>%s</b>", name))
		}

		if instance := alert.Instance(); instance != "" {
			lines = append(lines, "📍 "+instance)
		}

		if description := alert.Description(); description != "" {
			lines = append(lines, "💬 "+truncate(description))
		}

		if firing && alert.StartsAt != "" {
			lines = append(lines, "⏱️ Duration: "+f.duration(alert))
		}

		if i < count-1 {
			lines = append(lines, "")
		}
	}

	if count > maxDetailedAlerts {
		lines = append(lines, fmt.Sprintf("\n<i>... and %d more alerts</i>", count-maxDetailedAlerts))
	}

	return strings.Join(lines, "\n")
}

// Keyboard computes offered actions for one severity group.
// Params: batch slice, batch status, and the batch fingerprint source.
// Returns: action rows, nil for resolved or empty batches.
func (f *Formatter) Keyboard(alerts []domain.Alert, status domain.AlertStatus) []Row {
	if status != domain.StatusFiring || len(alerts) == 0 {
		return nil
	}

	first := alerts[0]
	fingerprint := domain.Fingerprint(first)

	rows := []Row{{
		{Label: "✅ ACK", Callback: "ack_" + fingerprint},
		{Label: "🔕 1h Silence", Callback: "silence_1h_" + fingerprint},
		{Label: "🔕 4h Silence", Callback: "silence_4h_" + fingerprint},
	}}

	var second Row
	if container := first.ContainerName(); container != "" {
		second = append(second, Button{Label: "🔄 Restart", Callback: "restart_" + container})
	}
	second = append(second, Button{Label: "📖 Runbook", URL: f.links.RunbookURL(first.Name())})
	second = append(second, Button{Label: "📊 Grafana", URL: f.links.DashboardURL(first.Category())})
	rows = append(rows, second)

	return rows
}

// truncate shortens long descriptions with an ellipsis marker.
// Params: annotation text.
// Returns: at most 200 runes plus "..." when cut; cutting on runes keeps
// multibyte descriptions valid UTF-8.
func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxDescriptionLen {
		return text
	}
	return string(runes[:maxDescriptionLen]) + "..."
}

// duration renders elapsed time since the alert start.
// Params: alert with startsAt timestamp.
// Returns: "{d}d {h}h", "{h}h {m}m", or "{m}m"; "?" for malformed stamps.
func (f *Formatter) duration(alert domain.Alert) string {
	started, err := alert.StartTime()
	if err != nil {
		return "?"
	}
	elapsed := f.now().Sub(started)
	if elapsed < 0 {
		elapsed = 0
	}

	days := int(elapsed.Hours()) / 24
	hours := int(elapsed.Hours()) % 24
	minutes := int(elapsed.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case elapsed >= time.Hour:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
