package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AlertStatus is the delivery-batch and record lifecycle status.
// Params: firing/resolved status constants.
// Returns: status used by webhook payloads and store records.
type AlertStatus string

const (
	// StatusFiring indicates an active alert condition.
	StatusFiring AlertStatus = "firing"
	// StatusResolved indicates a cleared alert condition.
	StatusResolved AlertStatus = "resolved"
)

// Label keys carried by the monitoring pipeline.
const (
	LabelAlertName = "alertname"
	LabelInstance  = "instance"
	LabelSeverity  = "severity"
	LabelCategory  = "category"
	LabelName      = "name"
)

// Alert is one alert as delivered by the monitoring pipeline.
// Params: label set, annotation set, and optional RFC3339 start time.
// Returns: immutable alert payload for formatting and store records.
type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    string            `json:"startsAt,omitempty"`
}

// WebhookPayload is one delivery batch from the monitoring pipeline.
// Params: batch status and ordered alert list.
// Returns: decoded webhook body for the ingest pipeline.
type WebhookPayload struct {
	Status AlertStatus `json:"status"`
	Alerts []Alert     `json:"alerts"`
}

// DecodeWebhook decodes and normalizes one webhook payload.
// Params: JSON document bytes.
// Returns: normalized payload or decode/validation error.
func DecodeWebhook(raw []byte) (WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return WebhookPayload{}, fmt.Errorf("decode webhook: %w", err)
	}
	if err := payload.normalize(); err != nil {
		return WebhookPayload{}, err
	}
	return payload, nil
}

// DecodeWebhookReader decodes and normalizes one webhook payload from stream.
// Params: reader positioned at one JSON object.
// Returns: normalized payload or decode/validation error.
func DecodeWebhookReader(reader *json.Decoder) (WebhookPayload, error) {
	var payload WebhookPayload
	if err := reader.Decode(&payload); err != nil {
		return WebhookPayload{}, fmt.Errorf("decode webhook: %w", err)
	}
	if err := payload.normalize(); err != nil {
		return WebhookPayload{}, err
	}
	return payload, nil
}

// normalize applies lenient payload defaults.
// Params: decoded payload fields.
// Returns: validation error for unsupported statuses.
func (p *WebhookPayload) normalize() error {
	if p.Status == "" {
		p.Status = StatusFiring
	}
	switch p.Status {
	case StatusFiring, StatusResolved:
	default:
		return fmt.Errorf("unsupported status %q", p.Status)
	}
	return nil
}

// Label returns one label value with empty-string fallback.
// Params: label key.
// Returns: label value or "".
func (a Alert) Label(key string) string {
	if a.Labels == nil {
		return ""
	}
	return a.Labels[key]
}

// Name returns the alertname label.
// Params: none.
// Returns: alert name or "".
func (a Alert) Name() string {
	return a.Label(LabelAlertName)
}

// Instance returns the instance label.
// Params: none.
// Returns: instance value or "".
func (a Alert) Instance() string {
	return a.Label(LabelInstance)
}

// Severity returns the severity label with warning fallback.
// Params: none.
// Returns: severity key, never "".
func (a Alert) Severity() string {
	if severity := a.Label(LabelSeverity); severity != "" {
		return severity
	}
	return "warning"
}

// Category returns the category label.
// Params: none.
// Returns: category key or "".
func (a Alert) Category() string {
	return a.Label(LabelCategory)
}

// Description returns the description annotation with summary fallback.
// Params: none.
// Returns: human-readable alert text or "".
func (a Alert) Description() string {
	if a.Annotations == nil {
		return ""
	}
	if description := a.Annotations["description"]; description != "" {
		return description
	}
	return a.Annotations["summary"]
}

// ContainerName derives a container identity from the alert labels.
// Params: none.
// Returns: name label, host part of instance for container alerts, or "".
func (a Alert) ContainerName() string {
	if name := a.Label(LabelName); name != "" {
		return name
	}
	if !strings.Contains(strings.ToLower(a.Name()), "container") {
		return ""
	}
	instance := a.Instance()
	if instance == "" {
		return ""
	}
	host, _, found := strings.Cut(instance, ":")
	if found {
		return host
	}
	return instance
}

// StartTime parses the alert start timestamp.
// Params: none.
// Returns: parsed start time or error for absent/malformed values.
func (a Alert) StartTime() (time.Time, error) {
	if strings.TrimSpace(a.StartsAt) == "" {
		return time.Time{}, fmt.Errorf("startsAt is empty")
	}
	started, err := time.Parse(time.RFC3339, a.StartsAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse startsAt: %w", err)
	}
	return started, nil
}

// Fingerprint derives the stable short identifier for one alert.
// Params: alert with alertname/instance labels (missing labels key as "").
// Returns: 8 hex chars of md5 over "alertname_instance"; truncation keeps
// the code operator-typeable at the cost of a tolerated collision chance.
func Fingerprint(alert Alert) string {
	return FingerprintOf(alert.Name(), alert.Instance())
}

// FingerprintOf derives the fingerprint from raw identity fields.
// Params: alert name and instance values.
// Returns: deterministic 8-char identifier, stable across restarts.
func FingerprintOf(alertname, instance string) string {
	sum := md5.Sum([]byte(alertname + "_" + instance))
	return hex.EncodeToString(sum[:])[:8]
}
