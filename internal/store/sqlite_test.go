package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"relaybot/internal/event"
	logx "relaybot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "relaybot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAppendAndCountEvents(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	ev := event.Event{
		ID:         "EV_A-1",
		Payload:    map[string]string{"service": "api", "status": "down"},
		SourceAddr: "1.2.3.4",
		ReceivedAt: time.Now(),
	}
	if err := st.AppendEvent(ctx, ev); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if n, err := st.CountEvents(ctx); err != nil || n != 1 {
		t.Fatalf("CountEvents = %d, %v; want 1", n, err)
	}

	// The id column carries a unique constraint.
	if err := st.AppendEvent(ctx, ev); err == nil {
		t.Fatal("expected unique constraint violation for duplicate event id")
	}
}

func TestDeleteSubscriptionReportsRowsAffected(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if n, err := st.DeleteSubscription(ctx, 42); err != nil || n != 0 {
		t.Fatalf("DeleteSubscription(absent) = %d, %v; want 0, nil", n, err)
	}

	sub := Subscription{ChatID: 42, GrantedBy: "admin", GrantedAt: now, ExpiresAt: now.AddDate(0, 0, 7)}
	if err := st.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}
	if n, err := st.DeleteSubscription(ctx, 42); err != nil || n != 1 {
		t.Fatalf("DeleteSubscription = %d, %v; want 1, nil", n, err)
	}
}

func TestActiveSubscriptionsFiltersAndOrders(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	subs := []Subscription{
		{ChatID: 10, GrantedBy: "a", GrantedAt: now, ExpiresAt: now.AddDate(0, 0, 3)},
		{ChatID: 20, GrantedBy: "a", GrantedAt: now, ExpiresAt: now.AddDate(0, 0, 30)},
		{ChatID: 30, GrantedBy: "a", GrantedAt: now, ExpiresAt: now.AddDate(0, 0, -1)},                       // expired
		{ChatID: 40, GrantedBy: "a", GrantedAt: now, ExpiresAt: now.AddDate(0, 0, 9), Status: StatusRevoked}, // revoked
	}
	for _, sub := range subs {
		if err := st.UpsertSubscription(ctx, sub); err != nil {
			t.Fatalf("UpsertSubscription(%d): %v", sub.ChatID, err)
		}
	}

	got, err := st.ActiveSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("ActiveSubscriptions: %v", err)
	}
	if len(got) != 2 || got[0].ChatID != 20 || got[1].ChatID != 10 {
		t.Fatalf("ActiveSubscriptions = %+v, want [20 10]", got)
	}

	if n, err := st.CountActiveSubscriptions(ctx, now); err != nil || n != 2 {
		t.Fatalf("CountActiveSubscriptions = %d, %v; want 2", n, err)
	}
}
