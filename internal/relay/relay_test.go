package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"relaybot/internal/access"
	"relaybot/internal/event"
	"relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []int64
	failFor map[int64]error
}

func (f *fakeSender) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to.ChatID)
	if err, ok := f.failFor[to.ChatID]; ok {
		return err
	}
	return nil
}

type fakeMembership struct {
	members []access.Member
	err     error
}

func (f *fakeMembership) ListActive(ctx context.Context) ([]access.Member, error) {
	return f.members, f.err
}

func newTestService(sender *fakeSender, members Membership) *Service {
	return New(Config{
		PrimaryChatID: 1,
		Title:         "New alert",
		Fields:        []string{"service", "status"},
		RatePerSec:    1000,
	}, sender, members, logx.Nop())
}

func testEvent() event.Event {
	return event.Event{
		ID:         "EV_TEST-1",
		Payload:    map[string]string{"service": "api"},
		SourceAddr: "1.2.3.4",
		ReceivedAt: time.Now(),
	}
}

func TestBroadcastAttemptsAllRecipients(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	members := &fakeMembership{members: []access.Member{
		{ChatID: 20}, {ChatID: 30}, {ChatID: 40},
	}}

	rep := newTestService(sender, members).Broadcast(context.Background(), testEvent())

	if got := rep.Attempts(); got != 4 {
		t.Fatalf("Attempts() = %d, want 4 (primary + 3 members)", got)
	}
	if rep.Delivered != 4 || len(rep.Failed) != 0 {
		t.Fatalf("Delivered=%d Failed=%d, want 4/0", rep.Delivered, len(rep.Failed))
	}
	if sender.sent[0] != 1 {
		t.Fatalf("primary chat must be attempted first, got %d", sender.sent[0])
	}
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{failFor: map[int64]error{20: errors.New("blocked")}}
	members := &fakeMembership{members: []access.Member{{ChatID: 20}, {ChatID: 30}}}

	rep := newTestService(sender, members).Broadcast(context.Background(), testEvent())

	// A failure for chat 20 must not prevent the attempt for chat 30.
	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 attempts, got %v", sender.sent)
	}
	if sender.sent[2] != 30 {
		t.Fatalf("chat 30 was not attempted after the failure: %v", sender.sent)
	}
	if rep.Delivered != 2 || len(rep.Failed) != 1 {
		t.Fatalf("Delivered=%d Failed=%d, want 2/1", rep.Delivered, len(rep.Failed))
	}
	if rep.Failed[0].ChatID != 20 || rep.Failed[0].Err == "" {
		t.Fatalf("unexpected failure record: %+v", rep.Failed[0])
	}
	if rep.Delivered+len(rep.Failed) != rep.Attempts() {
		t.Fatalf("accounting mismatch: %+v", rep)
	}
}

func TestBroadcastPrimaryFailureIsCounted(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{failFor: map[int64]error{1: errors.New("bot blocked")}}
	members := &fakeMembership{members: []access.Member{{ChatID: 20}}}

	rep := newTestService(sender, members).Broadcast(context.Background(), testEvent())

	// No special-case success assumption for the primary chat.
	if rep.Delivered != 1 || len(rep.Failed) != 1 {
		t.Fatalf("Delivered=%d Failed=%d, want 1/1", rep.Delivered, len(rep.Failed))
	}
	if rep.Failed[0].ChatID != 1 {
		t.Fatalf("expected primary in failed list, got %+v", rep.Failed)
	}
}

func TestBroadcastMembershipErrorStillReachesPrimary(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	members := &fakeMembership{err: errors.New("db gone")}

	rep := newTestService(sender, members).Broadcast(context.Background(), testEvent())

	if len(sender.sent) != 1 || sender.sent[0] != 1 {
		t.Fatalf("expected only the primary attempt, got %v", sender.sent)
	}
	if rep.Delivered != 1 {
		t.Fatalf("Delivered = %d, want 1", rep.Delivered)
	}
}
