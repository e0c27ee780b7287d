// Package app wires relaybot's services together and owns their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"relaybot/internal/access"
	"relaybot/internal/config"
	"relaybot/internal/httpapi"
	"relaybot/internal/ingest"
	"relaybot/internal/relay"
	"relaybot/internal/store"
	"relaybot/internal/transport"
	"relaybot/internal/transport/telegram"
	logx "relaybot/pkg/logx"
)

const Version = "1.0.0"

type App struct {
	cfg *config.Config
	log logx.Logger

	store    *store.Store
	access   *access.Service
	relay    *relay.Service
	ingest   *ingest.Service
	http     *httpapi.Server
	telegram *telegram.Adapter
	cron     *cron.Cron
}

// New builds the full service graph. Any error here is fatal —
// the process has nothing sensible to do without config, storage,
// or the bot connection.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: config.DurationOr(cfg.Storage.BusyTimeout, 5*time.Second),
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	tg, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.DurationOr(cfg.Telegram.PollTimeout, 10*time.Second),
	}, log)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	acc := access.New(st, log.With(logx.String("comp", "access")))

	rel := relay.New(relay.Config{
		PrimaryChatID: cfg.Relay.PrimaryChatID,
		Title:         cfg.Relay.Title,
		Fields:        cfg.Relay.Fields,
		SendTimeout:   config.DurationOr(cfg.Relay.SendTimeout, 5*time.Second),
		RatePerSec:    cfg.Relay.RatePerSec,
	}, tg, acc, log.With(logx.String("comp", "relay")))

	ing := ingest.New(st, rel, log.With(logx.String("comp", "ingest")))

	srv := httpapi.New(httpapi.Config{
		Addr:       cfg.HTTP.Addr,
		RatePerMin: cfg.HTTP.RatePerMin,
		Version:    Version,
	}, ing, log)

	return &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		access:   acc,
		relay:    rel,
		ingest:   ing,
		http:     srv,
		telegram: tg,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.telegram.RegisterControl(telegram.Control{
		AdminID: a.cfg.Telegram.AdminID,
		Version: Version,
		Access:  a.access,
		Events:  a.store,
		Log:     a.log.With(logx.String("comp", "control")),
	})
	a.telegram.Start(ctx)

	if err := a.http.Start(ctx); err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	if a.cfg.Digest.Enabled {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(a.cfg.Digest.Schedule, func() { a.sendDigest(ctx) }); err != nil {
			a.log.Warn("digest schedule invalid, digest disabled",
				logx.String("schedule", a.cfg.Digest.Schedule), logx.Err(err))
			a.cron = nil
		} else {
			a.cron.Start()
		}
	}

	a.notifyStarted(ctx)
	a.log.Info("relaybot started", logx.String("version", Version), logx.String("http", a.http.Addr()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	err := a.http.Stop(ctx)
	a.telegram.Stop()
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	a.log.Info("relaybot stopped")
	_ = a.log.Close()
	return err
}

// notifyStarted sends a best-effort startup notice to the admin chat.
func (a *App) notifyStarted(ctx context.Context) {
	nctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	msg := "relaybot " + Version + " started, relay active"
	to := transport.ChatTarget{ChatID: a.cfg.Telegram.AdminID}
	if err := a.telegram.SendText(nctx, to, msg, nil); err != nil {
		a.log.Warn("startup notice failed", logx.Err(err))
	}
}

// sendDigest pushes the daily counters to the admin chat.
func (a *App) sendDigest(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	events, err := a.store.CountEvents(dctx)
	if err != nil {
		a.log.Warn("digest failed", logx.Err(err))
		return
	}
	subs, err := a.access.CountActive(dctx)
	if err != nil {
		a.log.Warn("digest failed", logx.Err(err))
		return
	}
	msg := fmt.Sprintf("Daily digest: %d events ingested, %d active subscribers", events, subs)
	to := transport.ChatTarget{ChatID: a.cfg.Telegram.AdminID}
	if err := a.telegram.SendText(dctx, to, msg, nil); err != nil {
		a.log.Warn("digest send failed", logx.Err(err))
	}
}
