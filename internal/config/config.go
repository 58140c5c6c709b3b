package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultListen          = ":5001"
	defaultWebhookPath     = "/webhook/alertmanager"
	defaultHealthPath      = "/health"
	defaultMetricsPath     = "/metrics"
	defaultMaxBodyBytes    = 1 << 20
	defaultDeadManAlert    = "DeadManSwitch"
	defaultAlertmanagerURL = "http://alertmanager:9093"
	defaultCreatedBy       = "alertbot"
	defaultUpstreamTimeout = 15
	defaultNATSURL         = "nats://127.0.0.1:4222"
	defaultNATSSubject     = "alertbot.webhooks"
	defaultNATSStream      = "ALERTBOT_WEBHOOKS"
	defaultNATSConsumer    = "alertbot-ingest"
	defaultNATSGroup       = "alertbot-workers"
	defaultNATSAckWaitSec  = 30
	defaultNATSNackDelayMS = 1000
	defaultNATSMaxDeliver  = -1
	defaultNATSMaxPending  = 1024
	defaultAuditPath       = "/var/log/alertbot/escalations.log"
	defaultReportHour      = 9
	defaultRuntimeSocket   = "/var/run/docker.sock"
	defaultStopTimeoutSec  = 30
	defaultRunbookBase     = "https://github.com/your-repo/runbooks/blob/main"
	defaultGrafanaBase     = "https://grafana.yourdomain.com"
)

// Config is the root configuration snapshot.
// Params: one section struct per subsystem.
// Returns: validated runtime configuration.
type Config struct {
	Service      ServiceConfig      `toml:"service"`
	Log          LogConfig          `toml:"log"`
	Webhook      WebhookConfig      `toml:"webhook"`
	Ingest       IngestConfig       `toml:"ingest"`
	Telegram     TelegramConfig     `toml:"telegram"`
	Alertmanager AlertmanagerConfig `toml:"alertmanager"`
	Links        LinksConfig        `toml:"links"`
	Audit        AuditConfig        `toml:"audit"`
	Runtime      RuntimeConfig      `toml:"runtime"`
	Report       ReportConfig       `toml:"report"`
	Metrics      MetricsConfig      `toml:"metrics"`
}

// ServiceConfig describes process identity.
// Params: service name and advertised version.
// Returns: identity fields for logs and health endpoint.
type ServiceConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// LogConfig holds sink settings for the logging package.
// Params: console and file sink configs.
// Returns: sink selection for logging.New.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig describes one log sink.
// Params: enabled flag, level, format, and path for file sinks.
// Returns: sink construction parameters.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// WebhookConfig configures the inbound HTTP surface.
// Params: listen address, endpoint paths, body limit, deadman filter.
// Returns: webhook server settings.
type WebhookConfig struct {
	Listen        string `toml:"listen"`
	WebhookPath   string `toml:"webhook_path"`
	HealthPath    string `toml:"health_path"`
	MaxBodyBytes  int64  `toml:"max_body_bytes"`
	DeadManSwitch string `toml:"deadman_alert"`
}

// IngestConfig groups optional secondary ingestion transports.
// Params: NATS mirror settings.
// Returns: ingest transport selection.
type IngestConfig struct {
	NATS NATSIngestConfig `toml:"nats"`
}

// NATSIngestConfig configures the JetStream webhook mirror consumer.
// Params: connection URLs, stream/consumer identity, and ack tuning.
// Returns: NATS ingest settings; disabled by default.
type NATSIngestConfig struct {
	Enabled       bool     `toml:"enabled"`
	URL           []string `toml:"url"`
	Subject       string   `toml:"subject"`
	Stream        string   `toml:"stream"`
	ConsumerName  string   `toml:"consumer_name"`
	DeliverGroup  string   `toml:"deliver_group"`
	AckWaitSec    int      `toml:"ack_wait_sec"`
	NackDelayMS   int      `toml:"nack_delay_ms"`
	MaxDeliver    int      `toml:"max_deliver"`
	MaxAckPending int      `toml:"max_ack_pending"`
}

// TelegramConfig configures the chat transport.
// Params: bot token, allow-listed chat, and optional API base override.
// Returns: Telegram client settings.
type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   int64  `toml:"chat_id"`
	APIBase  string `toml:"api_base"`
}

// AlertmanagerConfig configures the silence API client.
// Params: base URL, request timeout, and silence author identity.
// Returns: upstream silence endpoint settings.
type AlertmanagerConfig struct {
	URL        string `toml:"url"`
	TimeoutSec int    `toml:"timeout_sec"`
	CreatedBy  string `toml:"created_by"`
}

// LinksConfig configures runbook and dashboard link resolution.
// Params: base URLs and per-key overrides.
// Returns: static link tables for the formatter.
type LinksConfig struct {
	RunbookBase string            `toml:"runbook_base"`
	Runbooks    map[string]string `toml:"runbooks"`
	GrafanaBase string            `toml:"grafana_base"`
	Dashboards  map[string]string `toml:"dashboards"`
}

// AuditConfig configures the escalation audit sink.
// Params: append-only log file path.
// Returns: audit sink location.
type AuditConfig struct {
	EscalationLog string `toml:"escalation_log"`
}

// RuntimeConfig configures the container runtime collaborator.
// Params: enabled flag, engine socket path, and stop/restart timeout.
// Returns: container runtime client settings.
type RuntimeConfig struct {
	Enabled        bool   `toml:"enabled"`
	Socket         string `toml:"socket"`
	StopTimeoutSec int    `toml:"stop_timeout_sec"`
}

// ReportConfig configures the scheduled daily report.
// Params: enabled flag and local wall-clock send time. Hour is a pointer
// so a configured midnight is distinguishable from an absent key.
// Returns: report scheduler settings.
type ReportConfig struct {
	Enabled bool `toml:"enabled"`
	Hour    *int `toml:"hour"`
	Minute  int  `toml:"minute"`
}

// MetricsConfig configures the self-monitoring endpoint.
// Params: enabled flag and handler path.
// Returns: metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ConfigSource selects one configuration input.
// Params: exactly one of File or Dir.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		cfg, err = loadFile(src.File)
	} else {
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes one TOML config file.
// Params: file path.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir decodes and overlays TOML fragments in lexical order.
// Params: directory path containing *.toml fragments.
// Returns: merged config or read/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	fragments := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		fragments = append(fragments, filepath.Join(dir, entry.Name()))
	}
	if len(fragments) == 0 {
		return Config{}, fmt.Errorf("config dir %q contains no *.toml fragments", dir)
	}
	sort.Strings(fragments)

	var cfg Config
	for _, fragment := range fragments {
		raw, err := os.ReadFile(fragment)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", fragment, err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %q: %w", fragment, err)
		}
	}
	return cfg, nil
}

// applyDefaults fills absent fields with runtime defaults.
// Params: decoded config pointer.
// Returns: config mutated in place.
func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "alertbot"
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = "3.0.0"
	}

	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}

	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = defaultListen
	}
	if cfg.Webhook.WebhookPath == "" {
		cfg.Webhook.WebhookPath = defaultWebhookPath
	}
	if cfg.Webhook.HealthPath == "" {
		cfg.Webhook.HealthPath = defaultHealthPath
	}
	if cfg.Webhook.MaxBodyBytes <= 0 {
		cfg.Webhook.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Webhook.DeadManSwitch == "" {
		cfg.Webhook.DeadManSwitch = defaultDeadManAlert
	}

	if len(cfg.Ingest.NATS.URL) == 0 {
		cfg.Ingest.NATS.URL = []string{defaultNATSURL}
	}
	if cfg.Ingest.NATS.Subject == "" {
		cfg.Ingest.NATS.Subject = defaultNATSSubject
	}
	if cfg.Ingest.NATS.Stream == "" {
		cfg.Ingest.NATS.Stream = defaultNATSStream
	}
	if cfg.Ingest.NATS.ConsumerName == "" {
		cfg.Ingest.NATS.ConsumerName = defaultNATSConsumer
	}
	if cfg.Ingest.NATS.DeliverGroup == "" {
		cfg.Ingest.NATS.DeliverGroup = defaultNATSGroup
	}
	if cfg.Ingest.NATS.AckWaitSec <= 0 {
		cfg.Ingest.NATS.AckWaitSec = defaultNATSAckWaitSec
	}
	if cfg.Ingest.NATS.NackDelayMS <= 0 {
		cfg.Ingest.NATS.NackDelayMS = defaultNATSNackDelayMS
	}
	if cfg.Ingest.NATS.MaxDeliver == 0 {
		cfg.Ingest.NATS.MaxDeliver = defaultNATSMaxDeliver
	}
	if cfg.Ingest.NATS.MaxAckPending <= 0 {
		cfg.Ingest.NATS.MaxAckPending = defaultNATSMaxPending
	}

	if cfg.Alertmanager.URL == "" {
		cfg.Alertmanager.URL = defaultAlertmanagerURL
	}
	if cfg.Alertmanager.TimeoutSec <= 0 {
		cfg.Alertmanager.TimeoutSec = defaultUpstreamTimeout
	}
	if cfg.Alertmanager.CreatedBy == "" {
		cfg.Alertmanager.CreatedBy = defaultCreatedBy
	}

	if cfg.Links.RunbookBase == "" {
		cfg.Links.RunbookBase = defaultRunbookBase
	}
	if cfg.Links.GrafanaBase == "" {
		cfg.Links.GrafanaBase = defaultGrafanaBase
	}

	if cfg.Audit.EscalationLog == "" {
		cfg.Audit.EscalationLog = defaultAuditPath
	}

	if cfg.Runtime.Socket == "" {
		cfg.Runtime.Socket = defaultRuntimeSocket
	}
	if cfg.Runtime.StopTimeoutSec <= 0 {
		cfg.Runtime.StopTimeoutSec = defaultStopTimeoutSec
	}

	if cfg.Report.Hour == nil {
		hour := defaultReportHour
		cfg.Report.Hour = &hour
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
}

// validateConfig validates the merged snapshot.
// Params: config after defaults.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return errors.New("telegram.bot_token is required")
	}
	if cfg.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	if !strings.HasPrefix(cfg.Webhook.WebhookPath, "/") {
		return fmt.Errorf("webhook.webhook_path %q must start with /", cfg.Webhook.WebhookPath)
	}
	if !strings.HasPrefix(cfg.Webhook.HealthPath, "/") {
		return fmt.Errorf("webhook.health_path %q must start with /", cfg.Webhook.HealthPath)
	}
	if cfg.Webhook.WebhookPath == cfg.Webhook.HealthPath {
		return errors.New("webhook and health paths must differ")
	}
	if !strings.HasPrefix(cfg.Alertmanager.URL, "http://") && !strings.HasPrefix(cfg.Alertmanager.URL, "https://") {
		return fmt.Errorf("alertmanager.url %q must be an http(s) URL", cfg.Alertmanager.URL)
	}
	if cfg.Report.Enabled {
		if *cfg.Report.Hour < 0 || *cfg.Report.Hour > 23 {
			return fmt.Errorf("report.hour %d out of range", *cfg.Report.Hour)
		}
		if cfg.Report.Minute < 0 || cfg.Report.Minute > 59 {
			return fmt.Errorf("report.minute %d out of range", cfg.Report.Minute)
		}
	}
	if cfg.Ingest.NATS.Enabled && len(cfg.Ingest.NATS.URL) == 0 {
		return errors.New("ingest.nats.url is required when NATS ingest is enabled")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Metrics.Path)
	}
	return nil
}
