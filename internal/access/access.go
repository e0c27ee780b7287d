// Package access tracks which chats are currently subscribed to the
// relay and until when.
//
// Entries are time-bounded: a chat is a member iff its entry is active
// and not yet expired. Expiry is evaluated at read time; expired
// entries are never evicted in the background, only excluded from the
// member set until explicitly revoked.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

var ErrBadDuration = errors.New("duration must be a positive number of days")

// Member is one active subscription, as seen by the relay.
type Member struct {
	ChatID    int64
	ExpiresAt time.Time
}

// SubscriptionStore is the persistence surface access needs.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub store.Subscription) error
	DeleteSubscription(ctx context.Context, chatID int64) (int64, error)
	GetSubscription(ctx context.Context, chatID int64) (store.Subscription, bool, error)
	ActiveSubscriptions(ctx context.Context, now time.Time) ([]store.Subscription, error)
	CountActiveSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store SubscriptionStore
	log   logx.Logger
	now   func() time.Time
}

func New(st SubscriptionStore, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: st, log: log, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Grant upserts the entry for chatID with expiry now + days.
// Repeating a grant resets the expiry; the old entry is replaced wholesale.
func (s *Service) Grant(ctx context.Context, chatID int64, days int, grantedBy string) error {
	if days <= 0 {
		return ErrBadDuration
	}
	now := s.now()
	sub := store.Subscription{
		ChatID:    chatID,
		GrantedBy: grantedBy,
		GrantedAt: now,
		ExpiresAt: now.AddDate(0, 0, days),
		Status:    store.StatusActive,
	}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("grant %d: %w", chatID, err)
	}
	s.log.Info("subscription granted",
		logx.Int64("chat_id", chatID),
		logx.Int("days", days),
		logx.String("granted_by", grantedBy),
		logx.Time("expires_at", sub.ExpiresAt),
	)
	return nil
}

// Revoke removes the entry and reports whether one existed.
// Revoking an unknown chat is not an error.
func (s *Service) Revoke(ctx context.Context, chatID int64) (bool, error) {
	n, err := s.store.DeleteSubscription(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("revoke %d: %w", chatID, err)
	}
	if n > 0 {
		s.log.Info("subscription revoked", logx.Int64("chat_id", chatID))
	}
	return n > 0, nil
}

// ListActive returns current members ordered by descending expiry
// (soonest to expire last). Each call is a fresh query against the
// store, so a concurrent grant or revoke is visible to the next call.
func (s *Service) ListActive(ctx context.Context) ([]Member, error) {
	subs, err := s.store.ActiveSubscriptions(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	members := make([]Member, 0, len(subs))
	for _, sub := range subs {
		members = append(members, Member{ChatID: sub.ChatID, ExpiresAt: sub.ExpiresAt})
	}
	return members, nil
}

// IsActive reports whether chatID is a current member.
func (s *Service) IsActive(ctx context.Context, chatID int64) (bool, error) {
	sub, ok, err := s.store.GetSubscription(ctx, chatID)
	if err != nil || !ok {
		return false, err
	}
	return sub.Status == store.StatusActive && s.now().Before(sub.ExpiresAt), nil
}

// Lookup returns the raw entry for chatID, if any.
func (s *Service) Lookup(ctx context.Context, chatID int64) (store.Subscription, bool, error) {
	return s.store.GetSubscription(ctx, chatID)
}

// CountActive returns the number of current members.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.store.CountActiveSubscriptions(ctx, s.now())
}
