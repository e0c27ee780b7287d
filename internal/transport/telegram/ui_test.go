package telegram

import (
	"strings"
	"testing"
	"time"

	"relaybot/internal/access"
)

func TestDaysLeftRoundsUp(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		exp  time.Time
		want int
	}{
		{name: "one hour left", exp: now.Add(time.Hour), want: 1},
		{name: "exactly 3 days", exp: now.AddDate(0, 0, 3), want: 3},
		{name: "3.5 days", exp: now.Add(84 * time.Hour), want: 4},
		{name: "already expired", exp: now.Add(-time.Minute), want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := daysLeft(now, tt.exp); got != tt.want {
				t.Fatalf("daysLeft = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRenderMemberList(t *testing.T) {
	t.Parallel()
	now := time.Now()

	if got := renderMemberList(nil, now); got != "No active subscriptions" {
		t.Fatalf("empty list rendering = %q", got)
	}

	got := renderMemberList([]access.Member{
		{ChatID: 20, ExpiresAt: now.AddDate(0, 0, 30)},
		{ChatID: 10, ExpiresAt: now.Add(time.Hour)},
	}, now)

	if !strings.Contains(got, "20") || !strings.Contains(got, "(1 days left)") {
		t.Fatalf("unexpected rendering:\n%s", got)
	}
	if !strings.Contains(got, "Total: 2") {
		t.Fatalf("missing total:\n%s", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	if got := splitText("short", 100); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short text split: %v", got)
	}

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString(strings.Repeat("x", 20) + "\n")
	}
	chunks := splitText(b.String(), 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
		if strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d has trailing newline", i)
		}
	}
}
