package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"relaybot/internal/access"
	"relaybot/internal/event"
	"relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

type Config struct {
	PrimaryChatID int64
	Title         string
	Fields        []string
	SendTimeout   time.Duration
	RatePerSec    int
}

// Membership resolves the current subscriber set. Resolved fresh on
// every broadcast; never cached here.
type Membership interface {
	ListActive(ctx context.Context) ([]access.Member, error)
}

type Failure struct {
	ChatID int64
	Err    string
}

// Report accounts for every attempted recipient:
// Delivered + len(Failed) equals the recipient-set size.
type Report struct {
	Delivered int
	Failed    []Failure
}

func (r Report) Attempts() int { return r.Delivered + len(r.Failed) }

type Service struct {
	cfg     Config
	sender  transport.Sender
	members Membership
	log     logx.Logger
	limiter *rate.Limiter
}

func New(cfg Config, sender transport.Sender, members Membership, log logx.Logger) *Service {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		sender:  sender,
		members: members,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Broadcast delivers ev to the primary chat first, then to every
// active subscriber in store order. A failed recipient is recorded in
// the report and delivery moves on; nothing propagates to the caller.
func (s *Service) Broadcast(ctx context.Context, ev event.Event) Report {
	jobID := uuid.NewString()
	start := time.Now()
	text := FormatMessage(s.cfg, ev)

	targets := []int64{s.cfg.PrimaryChatID}
	members, err := s.members.ListActive(ctx)
	if err != nil {
		// Subscribers are unknown; still attempt the primary chat.
		s.log.Error("resolving subscribers failed", logx.String("job", jobID), logx.Err(err))
	}
	for _, m := range members {
		targets = append(targets, m.ChatID)
	}

	var rep Report
	for _, chatID := range targets {
		if err := s.sendOne(ctx, chatID, text); err != nil {
			rep.Failed = append(rep.Failed, Failure{ChatID: chatID, Err: err.Error()})
			s.log.Warn("relay send failed",
				logx.String("job", jobID),
				logx.String("event", ev.ID),
				logx.Int64("chat_id", chatID),
				logx.Err(err),
			)
			continue
		}
		rep.Delivered++
	}

	fields := []logx.Field{
		logx.String("job", jobID),
		logx.String("event", ev.ID),
		logx.Int("delivered", rep.Delivered),
		logx.Int("failed", len(rep.Failed)),
		logx.Duration("dur", time.Since(start)),
	}
	if len(rep.Failed) > 0 {
		s.log.Warn("relay finished with failures", fields...)
	} else {
		s.log.Info("relay finished", fields...)
	}
	return rep
}

func (s *Service) sendOne(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	return s.sender.SendText(sctx, transport.ChatTarget{ChatID: chatID}, text, &transport.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
	})
}
