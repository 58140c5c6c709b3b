package silence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func TestCreateSubmitsWindowAndReturnsID(t *testing.T) {
	t.Parallel()

	var received Request
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/v2/silences" {
			t.Errorf("unexpected path %q", request.URL.Path)
		}
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = writer.Write([]byte(`{"silenceID":"abc-123"}`))
	}))
	defer server.Close()

	client := New(server.URL, "alertbot", 5*time.Second, func() time.Time { return testNow })
	id, err := client.Create(context.Background(), []Matcher{EqualMatcher("alertname", "HighCPU")}, 2*time.Hour, "test")
	if err != nil {
		t.Fatalf("create silence: %v", err)
	}
	if id != "abc-123" {
		t.Fatalf("expected upstream silence id, got %q", id)
	}

	if received.StartsAt != "2026-08-30T10:00:00Z" {
		t.Fatalf("unexpected startsAt %q", received.StartsAt)
	}
	if received.EndsAt != "2026-08-30T12:00:00Z" {
		t.Fatalf("unexpected endsAt %q", received.EndsAt)
	}
	if received.CreatedBy != "alertbot" {
		t.Fatalf("unexpected createdBy %q", received.CreatedBy)
	}
	if len(received.Matchers) != 1 || received.Matchers[0].Name != "alertname" || received.Matchers[0].Value != "HighCPU" {
		t.Fatalf("unexpected matchers %+v", received.Matchers)
	}
	if received.Matchers[0].IsEqual != nil {
		t.Fatalf("equal matcher must omit isEqual")
	}
}

func TestCreateSurfacesUpstreamBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadRequest)
		_, _ = writer.Write([]byte("matcher value is invalid"))
	}))
	defer server.Close()

	client := New(server.URL, "alertbot", 5*time.Second, nil)
	_, err := client.Create(context.Background(), []Matcher{EqualMatcher("alertname", "A")}, time.Hour, "test")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", upstream.StatusCode)
	}
	if !strings.Contains(upstream.Error(), "matcher value is invalid") {
		t.Fatalf("upstream body must be surfaced verbatim, got %q", upstream.Error())
	}
}

func TestCreateTransportFailure(t *testing.T) {
	t.Parallel()

	client := New("http://127.0.0.1:1", "alertbot", time.Second, nil)
	if _, err := client.Create(context.Background(), nil, time.Hour, "test"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestNotEqualMatcher(t *testing.T) {
	t.Parallel()

	matcher := NotEqualMatcher("severity", "critical")
	raw, err := json.Marshal(matcher)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"isEqual":false`) {
		t.Fatalf("expected explicit isEqual=false, got %s", raw)
	}
}
