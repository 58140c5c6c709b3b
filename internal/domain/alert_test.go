package domain

import (
	"strings"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	alert := Alert{Labels: map[string]string{
		LabelAlertName: "HighCPU",
		LabelInstance:  "host1:9100",
	}}

	first := Fingerprint(alert)
	second := Fingerprint(alert)
	if first != second {
		t.Fatalf("fingerprint is not deterministic: %q vs %q", first, second)
	}
	if len(first) != 8 {
		t.Fatalf("expected 8-char fingerprint, got %q", first)
	}

	twin := Alert{
		Labels: map[string]string{
			LabelAlertName: "HighCPU",
			LabelInstance:  "host1:9100",
			LabelSeverity:  "critical",
		},
		Annotations: map[string]string{"description": "other payload"},
	}
	if Fingerprint(twin) != first {
		t.Fatalf("alerts sharing (alertname, instance) must share fingerprints")
	}
}

func TestFingerprintMissingLabels(t *testing.T) {
	t.Parallel()

	if got := Fingerprint(Alert{}); got != FingerprintOf("", "") {
		t.Fatalf("missing labels must key as empty strings, got %q", got)
	}
	if FingerprintOf("HighCPU", "host1") == FingerprintOf("HighCPU", "host2") {
		t.Fatalf("distinct instances should not collide on trivial inputs")
	}
}

func TestDecodeWebhookDefaultsStatus(t *testing.T) {
	t.Parallel()

	payload, err := DecodeWebhook([]byte(`{"alerts":[{"labels":{"alertname":"A"}}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != StatusFiring {
		t.Fatalf("expected firing default, got %q", payload.Status)
	}
	if len(payload.Alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(payload.Alerts))
	}
}

func TestDecodeWebhookRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	if _, err := DecodeWebhook([]byte(`{"status":"snoozing","alerts":[]}`)); err == nil {
		t.Fatalf("expected error for unsupported status")
	}
	if _, err := DecodeWebhook([]byte(`{status}`)); err == nil || !strings.Contains(err.Error(), "decode webhook") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestDecodeWebhookEmptyAlerts(t *testing.T) {
	t.Parallel()

	payload, err := DecodeWebhook([]byte(`{"status":"resolved"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Alerts) != 0 {
		t.Fatalf("expected empty batch, got %d alerts", len(payload.Alerts))
	}
}

func TestAlertAccessors(t *testing.T) {
	t.Parallel()

	alert := Alert{
		Labels: map[string]string{
			LabelAlertName: "ContainerDown",
			LabelInstance:  "web:8080",
		},
		Annotations: map[string]string{"summary": "container stopped"},
	}

	if got := alert.Severity(); got != "warning" {
		t.Fatalf("expected warning fallback, got %q", got)
	}
	if got := alert.Description(); got != "container stopped" {
		t.Fatalf("expected summary fallback, got %q", got)
	}
	if got := alert.ContainerName(); got != "web" {
		t.Fatalf("expected instance host part, got %q", got)
	}

	alert.Labels[LabelName] = "web-backend"
	if got := alert.ContainerName(); got != "web-backend" {
		t.Fatalf("name label must win, got %q", got)
	}

	plain := Alert{Labels: map[string]string{LabelAlertName: "HighCPU", LabelInstance: "host1:9100"}}
	if got := plain.ContainerName(); got != "" {
		t.Fatalf("non-container alert must not expose a container name, got %q", got)
	}
}

func TestStartTime(t *testing.T) {
	t.Parallel()

	alert := Alert{StartsAt: "2026-08-30T10:00:00Z"}
	started, err := alert.StartTime()
	if err != nil {
		t.Fatalf("parse start time: %v", err)
	}
	if started.Hour() != 10 {
		t.Fatalf("unexpected parsed time %v", started)
	}

	if _, err := (Alert{StartsAt: "not-a-time"}).StartTime(); err == nil {
		t.Fatalf("expected error for malformed timestamp")
	}
	if _, err := (Alert{}).StartTime(); err == nil {
		t.Fatalf("expected error for absent timestamp")
	}
}
