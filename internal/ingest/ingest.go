// Package ingest runs the validate → persist → relay → acknowledge
// pipeline for incoming alert events.
package ingest

import (
	"context"
	"fmt"
	"time"

	"relaybot/internal/event"
	"relaybot/internal/relay"
	logx "relaybot/pkg/logx"
)

// EventStore is the append-only persistence collaborator.
type EventStore interface {
	AppendEvent(ctx context.Context, ev event.Event) error
}

// Broadcaster fans a persisted event out to the recipient set.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev event.Event) relay.Report
}

type Result struct {
	OK bool
	ID string
	// Recipients is the recipient-set size computed at dispatch time
	// (delivered plus failed attempts), not an estimate.
	Recipients int
}

type Service struct {
	store EventStore
	relay Broadcaster
	log   logx.Logger
	now   func() time.Time
}

func New(store EventStore, broadcaster Broadcaster, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, relay: broadcaster, log: log, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest persists the payload as a new event and relays it.
//
// Any payload shape is accepted; no field is mandatory (missing fields
// render as a placeholder downstream). A storage failure aborts the
// pipeline before any delivery attempt: the relay never runs on
// unpersisted data. Delivery failures are absorbed by the relay and do
// not fail the ingestion.
func (s *Service) Ingest(ctx context.Context, payload map[string]string, sourceAddr string) (Result, error) {
	now := s.now()
	ev := event.Event{
		ID:         event.NewID(now),
		Payload:    payload,
		SourceAddr: sourceAddr,
		ReceivedAt: now,
	}

	if err := s.store.AppendEvent(ctx, ev); err != nil {
		s.log.Error("event persist failed", logx.String("event", ev.ID), logx.Err(err))
		return Result{}, fmt.Errorf("persist event: %w", err)
	}

	rep := s.relay.Broadcast(ctx, ev)
	s.log.Info("event ingested",
		logx.String("event", ev.ID),
		logx.String("source", sourceAddr),
		logx.Int("recipients", rep.Attempts()),
		logx.Int("failed", len(rep.Failed)),
	)
	return Result{OK: true, ID: ev.ID, Recipients: rep.Attempts()}, nil
}
