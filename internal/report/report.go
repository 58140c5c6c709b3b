// Package report renders the system status view and the daily summary.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"alertbot/internal/monitor"
	"alertbot/internal/notify"
	"alertbot/internal/runtime"
)

const barWidth = 10

// Builder renders status and daily report text from host metrics.
// Params: host monitor, optional container runtime, and clock.
// Returns: HTML bodies for the operator chat.
type Builder struct {
	monitor monitor.Monitor
	runtime runtime.ContainerRuntime
	now     func() time.Time
}

// NewBuilder creates the report builder.
// Params: monitor, optional runtime (nil when disabled), and now function.
// Returns: initialized builder.
func NewBuilder(hostMonitor monitor.Monitor, containerRuntime runtime.ContainerRuntime, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{monitor: hostMonitor, runtime: containerRuntime, now: now}
}

// Status renders the interactive system status view.
// Params: context for metric sampling.
// Returns: HTML body or sampling error.
func (b *Builder) Status(ctx context.Context) (string, error) {
	snapshot, err := b.monitor.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("sample host metrics: %w", err)
	}
	running, total := b.containerCounts(ctx)

	var sb strings.Builder
	sb.WriteString("📊 <b>System Status</b>\n")
	sb.WriteString("<code>━━━━━━━━━━━━━━━━━━━━━</code>\n\n")
	sb.WriteString("🖥️ <b>Server</b>\n")
	fmt.Fprintf(&sb, "├ Uptime: %s\n", FormatUptime(snapshot.Uptime))
	fmt.Fprintf(&sb, "├ Load: %.2f / %.2f / %.2f\n", snapshot.Load1, snapshot.Load5, snapshot.Load15)
	fmt.Fprintf(&sb, "└ Time: %s\n\n", b.now().Format("02.01.2006 15:04"))

	fmt.Fprintf(&sb, "💻 <b>CPU</b> %s\n", thresholdEmoji(snapshot.CPUPercent))
	fmt.Fprintf(&sb, "└ [%s] %.1f%%\n\n", bar(snapshot.CPUPercent), snapshot.CPUPercent)

	fmt.Fprintf(&sb, "💾 <b>Memory</b> %s\n", thresholdEmoji(snapshot.MemPercent))
	fmt.Fprintf(&sb, "├ [%s] %.1f%%\n", bar(snapshot.MemPercent), snapshot.MemPercent)
	fmt.Fprintf(&sb, "├ Used: %s\n", FormatBytes(snapshot.MemUsed))
	fmt.Fprintf(&sb, "└ Total: %s\n\n", FormatBytes(snapshot.MemTotal))

	fmt.Fprintf(&sb, "💿 <b>Disk</b> %s\n", thresholdEmoji(snapshot.DiskPercent))
	fmt.Fprintf(&sb, "├ [%s] %.1f%%\n", bar(snapshot.DiskPercent), snapshot.DiskPercent)
	fmt.Fprintf(&sb, "├ Used: %s\n", FormatBytes(snapshot.DiskUsed))
	fmt.Fprintf(&sb, "└ Free: %s\n", FormatBytes(snapshot.DiskFree))

	if b.runtime != nil {
		fmt.Fprintf(&sb, "\n🐳 <b>Docker</b>\n└ %d/%d containers running\n", running, total)
	}
	return sb.String(), nil
}

// Daily renders the scheduled daily summary.
// Params: context for metric sampling.
// Returns: HTML body or sampling error.
func (b *Builder) Daily(ctx context.Context) (string, error) {
	snapshot, err := b.monitor.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("sample host metrics: %w", err)
	}
	running, total := b.containerCounts(ctx)

	var sb strings.Builder
	sb.WriteString("📊 <b>Daily Report</b>\n")
	sb.WriteString("<code>━━━━━━━━━━━━━━━━━━━━━</code>\n")
	fmt.Fprintf(&sb, "📅 %s\n\n", b.now().Format("02.01.2006 15:04"))
	sb.WriteString("<b>🖥️ System</b>\n")
	fmt.Fprintf(&sb, "├ Uptime: %s\n", FormatUptime(snapshot.Uptime))
	fmt.Fprintf(&sb, "├ Load: %.2f / %.2f / %.2f\n", snapshot.Load1, snapshot.Load5, snapshot.Load15)
	fmt.Fprintf(&sb, "├ %s CPU: %.1f%%\n", thresholdEmoji(snapshot.CPUPercent), snapshot.CPUPercent)
	fmt.Fprintf(&sb, "├ %s RAM: %.1f%%\n", thresholdEmoji(snapshot.MemPercent), snapshot.MemPercent)
	fmt.Fprintf(&sb, "└ %s Disk: %.1f%%\n", thresholdEmoji(snapshot.DiskPercent), snapshot.DiskPercent)

	if b.runtime != nil {
		fmt.Fprintf(&sb, "\n<b>🐳 Docker</b> (%d/%d)\n", running, total)
	}
	return sb.String(), nil
}

// containerCounts reads running/total container counts.
// Params: context.
// Returns: zero counts when the runtime is disabled or unreachable.
func (b *Builder) containerCounts(ctx context.Context) (running, total int) {
	if b.runtime == nil {
		return 0, 0
	}
	summaries, err := b.runtime.List(ctx)
	if err != nil {
		return 0, 0
	}
	for _, summary := range summaries {
		if summary.Status == "running" {
			running++
		}
	}
	return running, len(summaries)
}

// Scheduler sends the daily report at a fixed wall-clock time.
// Params: builder, chat sink, send hour/minute, and logger.
// Returns: run loop handle for the service.
type Scheduler struct {
	builder *Builder
	sink    notify.Sink
	hour    int
	minute  int
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler creates the daily report scheduler.
// Params: builder, sink, local send time, logger, and now function.
// Returns: initialized scheduler; call Run to start.
func NewScheduler(builder *Builder, sink notify.Sink, hour, minute int, logger *slog.Logger, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		builder: builder,
		sink:    sink,
		hour:    hour,
		minute:  minute,
		logger:  logger,
		now:     now,
	}
}

// Run sends one report per day until the context is canceled.
// Params: context controlling the loop.
// Returns: nothing; send failures are logged and retried next day.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait := time.Until(s.nextRun())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		body, err := s.builder.Daily(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("daily report build failed", "error", err.Error())
			}
			continue
		}
		if err := s.sink.Send(ctx, notify.Message{Text: body}); err != nil {
			if s.logger != nil {
				s.logger.Error("daily report send failed", "error", err.Error())
			}
			continue
		}
		if s.logger != nil {
			s.logger.Info("daily report sent")
		}
	}
}

// nextRun computes the next wall-clock send time.
// Params: none.
// Returns: today's send time, or tomorrow's when already past.
func (s *Scheduler) nextRun() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// bar renders a fixed-width utilization bar.
// Params: percent in 0..100.
// Returns: filled/empty block string.
func bar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// thresholdEmoji maps utilization to a traffic-light emoji.
// Params: percent; warn at 70, critical at 90.
// Returns: 🟢, 🟡, or 🔴.
func thresholdEmoji(percent float64) string {
	switch {
	case percent >= 90:
		return "🔴"
	case percent >= 70:
		return "🟡"
	default:
		return "🟢"
	}
}

// FormatBytes renders a byte count with a binary unit.
// Params: size in bytes.
// Returns: value like "1.5 GB".
func FormatBytes(size uint64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f PB", value)
}

// FormatUptime renders an uptime duration.
// Params: uptime duration.
// Returns: value like "3d 4h 12m" or "< 1m".
func FormatUptime(uptime time.Duration) string {
	total := int(uptime.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "< 1m"
	}
	return strings.Join(parts, " ")
}
