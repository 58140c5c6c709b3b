package store

import (
	"errors"
	"testing"
	"time"

	"alertbot/internal/domain"
)

func alertFor(name, instance string) domain.Alert {
	return domain.Alert{Labels: map[string]string{
		domain.LabelAlertName: name,
		domain.LabelInstance:  instance,
	}}
}

func TestUpsertKeepsOneRecordWithLastPayload(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	registry := New(func() time.Time { return now })

	alert := alertFor("HighCPU", "host1")
	for i := 0; i < 4; i++ {
		registry.Upsert(alert, domain.StatusFiring)
	}
	last := alertFor("HighCPU", "host1")
	last.Annotations = map[string]string{"description": "cpu 97%"}
	registry.Upsert(last, domain.StatusResolved)

	records := registry.ListAll()
	if len(records) != 1 {
		t.Fatalf("expected one record after repeated upserts, got %d", len(records))
	}
	if records[0].Status != domain.StatusResolved {
		t.Fatalf("expected last delivered status, got %q", records[0].Status)
	}
	if records[0].Alert.Description() != "cpu 97%" {
		t.Fatalf("expected last delivered payload, got %q", records[0].Alert.Description())
	}
	if !records[0].ReceivedAt.Equal(now) {
		t.Fatalf("received_at must stamp first receipt, got %v", records[0].ReceivedAt)
	}
}

func TestUpsertPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	registry := New(nil)
	registry.Upsert(alertFor("B", "host2"), domain.StatusFiring)
	registry.Upsert(alertFor("A", "host1"), domain.StatusFiring)
	registry.Upsert(alertFor("B", "host2"), domain.StatusFiring)

	records := registry.ListAll()
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if records[0].Alert.Name() != "B" || records[1].Alert.Name() != "A" {
		t.Fatalf("expected first-seen order, got %q then %q", records[0].Alert.Name(), records[1].Alert.Name())
	}
}

func TestMarkResolved(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	registry := New(func() time.Time { return now })

	if err := registry.MarkResolved("deadbeef", "operator"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown fingerprint, got %v", err)
	}

	alert := alertFor("HighCPU", "host1")
	registry.Upsert(alert, domain.StatusFiring)
	fingerprint := domain.Fingerprint(alert)

	if err := registry.MarkResolved(fingerprint, "operator"); err != nil {
		t.Fatalf("mark resolved: %v", err)
	}
	record, err := registry.Get(fingerprint)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != domain.StatusResolved {
		t.Fatalf("expected resolved status, got %q", record.Status)
	}
	if record.ResolvedAt == nil || !record.ResolvedAt.Equal(now) {
		t.Fatalf("expected resolved_at stamp, got %v", record.ResolvedAt)
	}
	if record.ResolvedBy != "operator" {
		t.Fatalf("expected resolver identity, got %q", record.ResolvedBy)
	}

	// Re-resolving is a tolerated no-op.
	if err := registry.MarkResolved(fingerprint, "operator"); err != nil {
		t.Fatalf("re-resolve must not fail: %v", err)
	}
}

func TestAcknowledgeNeverFails(t *testing.T) {
	t.Parallel()

	registry := New(nil)
	registry.Acknowledge("cafecafe")
	registry.Acknowledge("cafecafe")

	if !registry.Acked("cafecafe") {
		t.Fatalf("expected unseen fingerprint to be acknowledged")
	}
	if _, ok := registry.ListAcked()["cafecafe"]; !ok {
		t.Fatalf("expected acknowledgement to be listed")
	}
}

func TestAckSurvivesResolve(t *testing.T) {
	t.Parallel()

	registry := New(nil)
	alert := alertFor("HighCPU", "host1")
	registry.Upsert(alert, domain.StatusFiring)
	fingerprint := domain.Fingerprint(alert)

	registry.Acknowledge(fingerprint)
	if err := registry.MarkResolved(fingerprint, "operator"); err != nil {
		t.Fatalf("mark resolved: %v", err)
	}
	if !registry.Acked(fingerprint) {
		t.Fatalf("acknowledgement must not be unset by resolve")
	}
}

func TestListByStatus(t *testing.T) {
	t.Parallel()

	registry := New(nil)
	registry.Upsert(alertFor("A", "host1"), domain.StatusFiring)
	registry.Upsert(alertFor("B", "host2"), domain.StatusResolved)
	registry.Upsert(alertFor("C", "host3"), domain.StatusFiring)

	firing := registry.ListByStatus(domain.StatusFiring)
	if len(firing) != 2 || firing[0].Alert.Name() != "A" || firing[1].Alert.Name() != "C" {
		t.Fatalf("unexpected firing listing: %+v", firing)
	}
	resolved := registry.ListByStatus(domain.StatusResolved)
	if len(resolved) != 1 || resolved[0].Alert.Name() != "B" {
		t.Fatalf("unexpected resolved listing: %+v", resolved)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	registry := New(nil)
	registry.Upsert(alertFor("A", "host1"), domain.StatusFiring)
	registry.Acknowledge("cafecafe")

	registry.Clear()

	stats := registry.Size()
	if stats.Tracked != 0 || stats.Acked != 0 {
		t.Fatalf("expected empty store after clear, got %+v", stats)
	}
	if len(registry.ListAll()) != 0 {
		t.Fatalf("expected empty listing after clear")
	}
}
