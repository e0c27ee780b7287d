package telegram

import (
	"strconv"
	"strings"
	"time"

	"relaybot/internal/access"
	"relaybot/pkg/tgui"
)

func adminMenu() string {
	return tgui.Lines(
		tgui.B("Admin menu"),
		tgui.Raw("/grant <chat_id> <days> — subscribe a chat"),
		tgui.Raw("/revoke <chat_id> — remove a subscription"),
		tgui.Raw("/list — active subscriptions"),
		tgui.Raw("/stats — service counters"),
	).String()
}

func subscriberMenu(expiresAt time.Time) string {
	return tgui.Lines(
		tgui.B("Subscription active"),
		tgui.Esc("Expires: "+expiresAt.Format("2006-01-02")),
		tgui.I("Alerts are delivered here automatically."),
	).String()
}

func visitorMenu() string {
	return tgui.Lines(
		tgui.B("No active subscription"),
		tgui.Esc("Only subscribed chats receive alerts. Contact the operator for access."),
	).String()
}

// renderMemberList renders /list output: one line per member with days
// remaining, soonest-to-expire last (the order ListActive returns).
func renderMemberList(members []access.Member, now time.Time) string {
	if len(members) == 0 {
		return "No active subscriptions"
	}
	var b strings.Builder
	b.WriteString(tgui.B("Active subscriptions").String())
	for _, m := range members {
		b.WriteString("\n• " + tgui.Code(strconv.FormatInt(m.ChatID, 10)).String() +
			" (" + strconv.Itoa(daysLeft(now, m.ExpiresAt)) + " days left)")
	}
	b.WriteString("\n\nTotal: " + strconv.Itoa(len(members)))
	return b.String()
}

func renderStats(version string, events, subscribers int64) string {
	return tgui.Lines(
		tgui.B("Service stats"),
		tgui.Esc("Events ingested: "+strconv.FormatInt(events, 10)),
		tgui.Esc("Active subscribers: "+strconv.FormatInt(subscribers, 10)),
		tgui.Esc("Version: "+version),
	).String()
}

// daysLeft rounds up, matching the renewal-facing display: an entry
// that expires in one hour still shows 1 day.
func daysLeft(now, expiresAt time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
