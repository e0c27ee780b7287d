// Package telegram adapts the transport.Sender surface and the
// control-command surface onto a telebot long-polling bot.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log.With(logx.String("comp", "telegram")), bot: b}, nil
}

// Start runs the long-poll loop until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	go func() {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	}()
}

func (a *Adapter) Stop() {
	a.bot.Stop()
}

const textLimit = 4000

// SendText delivers text to one chat, splitting over-long messages on
// newline boundaries.
func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	sendOpt := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
	}

	for _, chunk := range splitText(text, textLimit) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if _, err := a.bot.Send(tele.ChatID(to.ChatID), chunk, sendOpt); err != nil {
			return err
		}
	}
	return nil
}

// splitText splits s into chunks of at most limit runes, preferring
// newline boundaries so formatted blocks stay intact.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
