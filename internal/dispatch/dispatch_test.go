package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"alertbot/internal/audit"
	"alertbot/internal/domain"
	containerruntime "alertbot/internal/runtime"
	"alertbot/internal/silence"
	"alertbot/internal/store"
)

type fakeSilencer struct {
	calls    int
	matchers []silence.Matcher
	duration time.Duration
	comment  string
	id       string
	err      error
}

func (f *fakeSilencer) Create(_ context.Context, matchers []silence.Matcher, duration time.Duration, comment string) (string, error) {
	f.calls++
	f.matchers = matchers
	f.duration = duration
	f.comment = comment
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeAudit struct {
	entries []audit.Entry
	err     error
}

func (f *fakeAudit) Append(entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return f.err
}

type fakeRuntime struct {
	restartErr error
	status     string
	restarted  []string
}

func (f *fakeRuntime) Restart(_ context.Context, name string) error {
	f.restarted = append(f.restarted, name)
	return f.restartErr
}

func (f *fakeRuntime) Status(_ context.Context, _ string) (string, error) {
	return f.status, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
}

func newDispatcher(t *testing.T, silencer *fakeSilencer, sink *fakeAudit, rt *fakeRuntime) (*Dispatcher, *store.Store) {
	t.Helper()
	registry := store.New(fixedNow)
	if silencer == nil {
		silencer = &fakeSilencer{id: "sil-1"}
	}
	if sink == nil {
		sink = &fakeAudit{}
	}
	var runtime ContainerRestarter
	if rt != nil {
		runtime = rt
	}
	return New(registry, silencer, sink, runtime, nil, fixedNow, "operator"), registry
}

func firingAlert(name, instance string) domain.Alert {
	return domain.Alert{Labels: map[string]string{
		domain.LabelAlertName: name,
		domain.LabelInstance:  instance,
	}}
}

func TestAcknowledgeMarksAlert(t *testing.T) {
	t.Parallel()

	d, registry := newDispatcher(t, nil, nil, nil)
	reply := d.Execute(context.Background(), Ack{Fingerprint: "abc12345"})

	if !strings.Contains(reply, "<code>abc12345</code> acknowledged") {
		t.Fatalf("unexpected ack reply: %q", reply)
	}
	if !registry.Acked("abc12345") {
		t.Fatal("fingerprint was not acknowledged in the store")
	}
}

func TestAcknowledgeWithoutArgumentListsAlerts(t *testing.T) {
	t.Parallel()

	d, registry := newDispatcher(t, nil, nil, nil)
	reply := d.Execute(context.Background(), Ack{})
	if !strings.Contains(reply, "No alerts to acknowledge") {
		t.Fatalf("expected empty-store hint, got %q", reply)
	}

	alert := firingAlert("DiskFull", "db1:9100")
	registry.Upsert(alert, domain.StatusFiring)
	reply = d.Execute(context.Background(), Ack{})
	if !strings.Contains(reply, domain.Fingerprint(alert)) || !strings.Contains(reply, "DiskFull") {
		t.Fatalf("listing should include fingerprint and name, got %q", reply)
	}
}

func TestSilenceCreatesEqualityMatcher(t *testing.T) {
	t.Parallel()

	silencer := &fakeSilencer{id: "sil-42"}
	d, _ := newDispatcher(t, silencer, nil, nil)

	reply := d.Execute(context.Background(), Silence{AlertName: "HighCPU", Duration: "4h"})

	if silencer.calls != 1 {
		t.Fatalf("expected one silence call, got %d", silencer.calls)
	}
	if silencer.duration != 4*time.Hour {
		t.Fatalf("unexpected duration: %v", silencer.duration)
	}
	if len(silencer.matchers) != 1 || silencer.matchers[0].Name != domain.LabelAlertName || silencer.matchers[0].Value != "HighCPU" {
		t.Fatalf("unexpected matchers: %+v", silencer.matchers)
	}
	if !strings.Contains(reply, "silenced for 4 hours") || !strings.Contains(reply, "sil-42") {
		t.Fatalf("unexpected silence reply: %q", reply)
	}
}

func TestSilenceRejectsMalformedDurationBeforeCalling(t *testing.T) {
	t.Parallel()

	silencer := &fakeSilencer{id: "unused"}
	d, _ := newDispatcher(t, silencer, nil, nil)

	reply := d.Execute(context.Background(), Silence{AlertName: "HighCPU", Duration: "soon"})

	if silencer.calls != 0 {
		t.Fatalf("malformed duration must not reach the silence API, calls=%d", silencer.calls)
	}
	if !strings.Contains(reply, "Invalid duration") {
		t.Fatalf("expected duration error text, got %q", reply)
	}
}

func TestSilenceSurfacesUpstreamBody(t *testing.T) {
	t.Parallel()

	silencer := &fakeSilencer{err: &silence.UpstreamError{StatusCode: 422, Body: "end time must be in the future"}}
	d, _ := newDispatcher(t, silencer, nil, nil)

	reply := d.Execute(context.Background(), Silence{AlertName: "HighCPU", Duration: "1h"})
	if !strings.Contains(reply, "end time must be in the future") {
		t.Fatalf("upstream body must appear verbatim, got %q", reply)
	}
}

func TestSnoozeAllExcludesCritical(t *testing.T) {
	t.Parallel()

	silencer := &fakeSilencer{id: "sil-7"}
	d, _ := newDispatcher(t, silencer, nil, nil)

	reply := d.Execute(context.Background(), Snooze{Duration: "30m"})

	if len(silencer.matchers) != 1 {
		t.Fatalf("expected one matcher, got %+v", silencer.matchers)
	}
	m := silencer.matchers[0]
	if m.Name != domain.LabelSeverity || m.Value != "critical" {
		t.Fatalf("unexpected matcher: %+v", m)
	}
	if m.IsEqual == nil || *m.IsEqual {
		t.Fatal("snooze-all matcher must be an inequality matcher")
	}
	if !strings.Contains(reply, "all alerts") || !strings.Contains(reply, "Ends: 15:00") {
		t.Fatalf("unexpected snooze reply: %q", reply)
	}
}

func TestSnoozeNamedAlert(t *testing.T) {
	t.Parallel()

	silencer := &fakeSilencer{id: "sil-8"}
	d, _ := newDispatcher(t, silencer, nil, nil)

	reply := d.Execute(context.Background(), Snooze{Duration: "2h", AlertName: "HighCPU"})

	if len(silencer.matchers) != 1 || silencer.matchers[0].Value != "HighCPU" {
		t.Fatalf("unexpected matchers: %+v", silencer.matchers)
	}
	if silencer.duration != 2*time.Hour {
		t.Fatalf("unexpected duration: %v", silencer.duration)
	}
	if !strings.Contains(reply, "<b>HighCPU</b> snoozed for 2h") {
		t.Fatalf("unexpected snooze reply: %q", reply)
	}
}

func TestEscalateAppendsAuditEntry(t *testing.T) {
	t.Parallel()

	sink := &fakeAudit{}
	d, _ := newDispatcher(t, nil, sink, nil)

	reply := d.Execute(context.Background(), Escalate{Fingerprint: "abc12345", Message: "need hands"})

	if len(sink.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.Fingerprint != "abc12345" || entry.Actor != "operator" || entry.Message != "need hands" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if !strings.Contains(reply, "Alert Escalated") || !strings.Contains(reply, "need hands") {
		t.Fatalf("unexpected escalate reply: %q", reply)
	}
}

func TestEscalateReportsAuditFailure(t *testing.T) {
	t.Parallel()

	sink := &fakeAudit{err: errors.New("disk full")}
	d, _ := newDispatcher(t, nil, sink, nil)

	reply := d.Execute(context.Background(), Escalate{Fingerprint: "abc12345"})

	if !strings.Contains(reply, "Alert Escalated") {
		t.Fatalf("escalation must still confirm, got %q", reply)
	}
	if !strings.Contains(reply, "Audit log write failed") {
		t.Fatalf("audit failure caveat missing from %q", reply)
	}
	if sink.entries[0].Message != defaultEscalationMessage {
		t.Fatalf("empty message should fall back, got %q", sink.entries[0].Message)
	}
}

func TestResolveKnownAndUnknown(t *testing.T) {
	t.Parallel()

	d, registry := newDispatcher(t, nil, nil, nil)

	reply := d.Execute(context.Background(), Resolve{Fingerprint: "deadbeef"})
	if !strings.Contains(reply, "Alert not found: deadbeef") {
		t.Fatalf("expected not-found text, got %q", reply)
	}

	alert := firingAlert("DiskFull", "db1:9100")
	registry.Upsert(alert, domain.StatusFiring)
	fp := domain.Fingerprint(alert)

	reply = d.Execute(context.Background(), Resolve{Fingerprint: fp})
	if !strings.Contains(reply, "marked as resolved") {
		t.Fatalf("unexpected resolve reply: %q", reply)
	}
	record, err := registry.Get(fp)
	if err != nil {
		t.Fatalf("record should still be tracked: %v", err)
	}
	if record.Status != domain.StatusResolved || record.ResolvedBy != "operator" {
		t.Fatalf("record not resolved: %+v", record)
	}
}

func TestRestartOutcomes(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{status: "running"}
	d, _ := newDispatcher(t, nil, nil, rt)

	reply := d.Execute(context.Background(), Restart{Container: "web"})
	if !strings.Contains(reply, "restarted successfully") {
		t.Fatalf("unexpected restart reply: %q", reply)
	}
	if len(rt.restarted) != 1 || rt.restarted[0] != "web" {
		t.Fatalf("runtime not invoked as expected: %+v", rt.restarted)
	}

	missing := &fakeRuntime{restartErr: containerruntime.ErrNotFound}
	d, _ = newDispatcher(t, nil, nil, missing)
	reply = d.Execute(context.Background(), Restart{Container: "ghost"})
	if !strings.Contains(reply, "Container not found: ghost") {
		t.Fatalf("expected not-found text, got %q", reply)
	}
}

func TestRestartWithoutRuntime(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, nil, nil, nil)
	reply := d.Execute(context.Background(), Restart{Container: "web"})
	if !strings.Contains(reply, "not configured") {
		t.Fatalf("expected disabled-runtime text, got %q", reply)
	}
}

func TestClearHistoryEmptiesStore(t *testing.T) {
	t.Parallel()

	d, registry := newDispatcher(t, nil, nil, nil)
	registry.Upsert(firingAlert("DiskFull", "db1:9100"), domain.StatusFiring)
	registry.Acknowledge("abc12345")

	reply := d.Execute(context.Background(), ClearHistory{})
	if !strings.Contains(reply, "history cleared") {
		t.Fatalf("unexpected clear reply: %q", reply)
	}
	if stats := registry.Size(); stats.Tracked != 0 || stats.Acked != 0 {
		t.Fatalf("store not cleared: %+v", stats)
	}
}
