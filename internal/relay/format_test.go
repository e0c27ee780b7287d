package relay

import (
	"strings"
	"testing"
	"time"

	"relaybot/internal/event"
)

func TestFormatMessageRendersPlaceholders(t *testing.T) {
	t.Parallel()
	cfg := Config{
		Title:  "New alert",
		Fields: []string{"service", "check", "status"},
	}
	ev := event.Event{
		ID:         "EV_ABC-1",
		Payload:    map[string]string{"service": "billing"},
		SourceAddr: "10.0.0.9",
		ReceivedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	msg := FormatMessage(cfg, ev)

	if !strings.Contains(msg, "billing") {
		t.Fatalf("present field missing from message:\n%s", msg)
	}
	// Absent fields render as the fixed placeholder, never blank.
	for _, line := range []string{"<b>check</b>: N/A", "<b>status</b>: N/A"} {
		if !strings.Contains(msg, line) {
			t.Fatalf("expected %q in message:\n%s", line, msg)
		}
	}
	if strings.Contains(msg, ": \n") || strings.HasSuffix(msg, ": ") {
		t.Fatalf("blank field value rendered:\n%s", msg)
	}
	if !strings.Contains(msg, "EV_ABC-1") || !strings.Contains(msg, "10.0.0.9") {
		t.Fatalf("id or source missing:\n%s", msg)
	}
}

func TestFormatMessageEscapesHTML(t *testing.T) {
	t.Parallel()
	cfg := Config{Title: "New alert", Fields: []string{"detail"}}
	ev := event.Event{
		ID:         "EV_X-1",
		Payload:    map[string]string{"detail": "<script>alert(1)</script>"},
		ReceivedAt: time.Now(),
	}

	msg := FormatMessage(cfg, ev)
	if strings.Contains(msg, "<script>") {
		t.Fatalf("payload HTML not escaped:\n%s", msg)
	}
}
