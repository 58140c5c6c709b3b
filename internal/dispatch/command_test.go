package dispatch

import (
	"errors"
	"testing"
	"time"
)

func TestParseCommandVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want Command
	}{
		{"ack with fingerprint", "/ack abc12345", Ack{Fingerprint: "abc12345"}},
		{"ack bare", "/ack", Ack{}},
		{"ack with bot suffix", "/ack@opsbot abc12345", Ack{Fingerprint: "abc12345"}},
		{"silence full", "/silence HighCPU 2h", Silence{AlertName: "HighCPU", Duration: "2h"}},
		{"silence uppercase duration", "/silence HighCPU 2H", Silence{AlertName: "HighCPU", Duration: "2h"}},
		{"snooze all", "/snooze 30m", Snooze{Duration: "30m"}},
		{"snooze named", "/snooze 2h HighCPU", Snooze{Duration: "2h", AlertName: "HighCPU"}},
		{"escalate with message", "/escalate abc123 need hands now", Escalate{Fingerprint: "abc123", Message: "need hands now"}},
		{"resolve", "/resolve abc123", Resolve{Fingerprint: "abc123"}},
		{"restart", "/restart web", Restart{Container: "web"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tc.text)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tc.text, err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %#v, want %#v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseRejectsUnknownAndEmpty(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "/frobnicate now"} {
		if _, err := Parse(text); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Parse(%q) should fail with ErrInvalidInput, got %v", text, err)
		}
	}
}

func TestParseSilenceDuration(t *testing.T) {
	t.Parallel()

	if d, err := parseSilenceDuration("4h"); err != nil || d != 4*time.Hour {
		t.Fatalf("4h parsed to (%v, %v)", d, err)
	}
	for _, bad := range []string{"30m", "h", "0h", "-1h", "1.5h", "soon"} {
		if _, err := parseSilenceDuration(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q should be rejected, got %v", bad, err)
		}
	}
}

func TestParseSnoozeDuration(t *testing.T) {
	t.Parallel()

	if d, err := parseSnoozeDuration("30m"); err != nil || d != 30*time.Minute {
		t.Fatalf("30m parsed to (%v, %v)", d, err)
	}
	if d, err := parseSnoozeDuration("2h"); err != nil || d != 2*time.Hour {
		t.Fatalf("2h parsed to (%v, %v)", d, err)
	}
	for _, bad := range []string{"m", "0m", "-5m", "2d", "later"} {
		if _, err := parseSnoozeDuration(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q should be rejected, got %v", bad, err)
		}
	}
}
