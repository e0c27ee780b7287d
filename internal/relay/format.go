package relay

import (
	"strings"
	"time"

	"relaybot/internal/event"
	"relaybot/pkg/tgui"
)

// missingValue is what recipients see for an expected field the event
// did not carry. Deliberately never empty: every message is well-formed
// no matter how sparse the payload was.
const missingValue = "N/A"

// FormatMessage renders ev into the fixed relay template.
func FormatMessage(cfg Config, ev event.Event) string {
	var b strings.Builder
	b.WriteString(tgui.B(cfg.Title).String())
	b.WriteString("\n\n")
	b.WriteString("ID: " + tgui.Code(valueOr(ev.ID)).String() + "\n")
	b.WriteString("Time: " + tgui.Esc(ev.ReceivedAt.Format(time.RFC3339)).String() + "\n")
	b.WriteString("Source: " + tgui.Code(valueOr(ev.SourceAddr)).String() + "\n")
	for _, key := range cfg.Fields {
		b.WriteString("\n• " + tgui.B(key).String() + ": " + tgui.Esc(valueOr(ev.Payload[key])).String())
	}
	return b.String()
}

func valueOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingValue
	}
	return s
}
