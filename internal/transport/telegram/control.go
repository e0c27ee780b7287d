package telegram

import (
	"context"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"relaybot/internal/access"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

// EventCounter is the slice of the store the /stats command needs.
type EventCounter interface {
	CountEvents(ctx context.Context) (int64, error)
}

// Control wires the administrative command surface.
//
// Every mutating or reporting command is gated to the single admin
// chat id; anyone else gets an explicit forbidden reply.
type Control struct {
	AdminID int64
	Version string

	Access *access.Service
	Events EventCounter
	Log    logx.Logger
}

const controlTimeout = 10 * time.Second

// RegisterControl binds the control commands onto the adapter's bot.
func (a *Adapter) RegisterControl(ctl Control) {
	log := ctl.Log
	if log.IsZero() {
		log = a.log
	}

	a.bot.Handle("/start", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		return c.Send(ctl.startMenu(ctx, c.Sender().ID), tele.ModeHTML)
	})

	a.bot.Handle("/grant", ctl.adminOnly(log, func(ctx context.Context, c tele.Context) error {
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Usage: /grant <chat_id> <days>")
		}
		chatID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("chat_id must be a number")
		}
		days, err := strconv.Atoi(args[1])
		if err != nil || days <= 0 {
			return c.Send("days must be a positive number")
		}

		if err := ctl.Access.Grant(ctx, chatID, days, strconv.FormatInt(c.Sender().ID, 10)); err != nil {
			log.Error("grant failed", logx.Int64("chat_id", chatID), logx.Err(err))
			return c.Send("Grant failed, see logs.")
		}
		// Courtesy notice; the target chat may be unreachable, which is fine.
		_, _ = a.bot.Send(tele.ChatID(chatID),
			"Your alert subscription is active for "+strconv.Itoa(days)+" days.")
		return c.Send("Granted " + args[0] + " for " + strconv.Itoa(days) + " days")
	}))

	a.bot.Handle("/revoke", ctl.adminOnly(log, func(ctx context.Context, c tele.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /revoke <chat_id>")
		}
		chatID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("chat_id must be a number")
		}

		removed, err := ctl.Access.Revoke(ctx, chatID)
		if err != nil {
			log.Error("revoke failed", logx.Int64("chat_id", chatID), logx.Err(err))
			return c.Send("Revoke failed, see logs.")
		}
		if !removed {
			return c.Send("Chat " + args[0] + " has no subscription")
		}
		_, _ = a.bot.Send(tele.ChatID(chatID), "Your alert subscription has been revoked.")
		return c.Send("Revoked " + args[0])
	}))

	a.bot.Handle("/list", ctl.adminOnly(log, func(ctx context.Context, c tele.Context) error {
		members, err := ctl.Access.ListActive(ctx)
		if err != nil {
			log.Error("list failed", logx.Err(err))
			return c.Send("List failed, see logs.")
		}
		return c.Send(renderMemberList(members, time.Now()), tele.ModeHTML)
	}))

	a.bot.Handle("/stats", ctl.adminOnly(log, func(ctx context.Context, c tele.Context) error {
		events, err := ctl.Events.CountEvents(ctx)
		if err != nil {
			log.Error("stats failed", logx.Err(err))
			return c.Send("Stats failed, see logs.")
		}
		subs, err := ctl.Access.CountActive(ctx)
		if err != nil {
			log.Error("stats failed", logx.Err(err))
			return c.Send("Stats failed, see logs.")
		}
		return c.Send(renderStats(ctl.Version, events, subs), tele.ModeHTML)
	}))
}

type controlHandler func(ctx context.Context, c tele.Context) error

// adminOnly rejects non-admin senders with an explicit reply,
// never silently.
func (ctl Control) adminOnly(log logx.Logger, next controlHandler) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || c.Sender().ID != ctl.AdminID {
			var fromID int64
			if c.Sender() != nil {
				fromID = c.Sender().ID
			}
			log.Warn("control command forbidden",
				logx.Int64("from_id", fromID),
				logx.String("text", c.Text()),
			)
			return c.Send("Forbidden: admin-only command.")
		}
		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		return next(ctx, c)
	}
}

func (ctl Control) startMenu(ctx context.Context, fromID int64) string {
	if fromID == ctl.AdminID {
		return adminMenu()
	}
	sub, ok, err := ctl.Access.Lookup(ctx, fromID)
	if err == nil && ok && sub.Status == store.StatusActive && time.Now().Before(sub.ExpiresAt) {
		return subscriberMenu(sub.ExpiresAt)
	}
	return visitorMenu()
}
