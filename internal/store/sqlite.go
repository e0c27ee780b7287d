package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"relaybot/internal/event"
	logx "relaybot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- events ----

func (s *Store) AppendEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events(event_id, payload, source_addr, received_at) VALUES(?,?,?,?)`,
		ev.ID, string(payload), nullStr(ev.SourceAddr), ev.ReceivedAt.UnixMilli(),
	)
	return err
}

func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// ---- subscriptions ----

// UpsertSubscription inserts or replaces the entry for sub.ChatID.
func (s *Store) UpsertSubscription(ctx context.Context, sub Subscription) error {
	if sub.Status == "" {
		sub.Status = StatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions(chat_id, granted_by, granted_at, expires_at, status)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   granted_by=excluded.granted_by,
		   granted_at=excluded.granted_at,
		   expires_at=excluded.expires_at,
		   status=excluded.status`,
		sub.ChatID, sub.GrantedBy, sub.GrantedAt.UnixMilli(), sub.ExpiresAt.UnixMilli(), sub.Status,
	)
	return err
}

// DeleteSubscription removes the entry and reports how many rows went away.
func (s *Store) DeleteSubscription(ctx context.Context, chatID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) GetSubscription(ctx context.Context, chatID int64) (Subscription, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, granted_by, granted_at, expires_at, status
		 FROM subscriptions WHERE chat_id = ?`, chatID)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, false, nil
	}
	if err != nil {
		return Subscription{}, false, err
	}
	return sub, true, nil
}

// ActiveSubscriptions returns entries that are active at the given
// instant, ordered by descending expiry. Expiry is evaluated here, at
// read time; expired entries stay in the table.
func (s *Store) ActiveSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, granted_by, granted_at, expires_at, status
		 FROM subscriptions
		 WHERE status = ? AND expires_at > ?
		 ORDER BY expires_at DESC`,
		StatusActive, now.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) CountActiveSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE status = ? AND expires_at > ?`,
		StatusActive, now.UnixMilli(),
	).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(r rowScanner) (Subscription, error) {
	var sub Subscription
	var grantedAt, expiresAt int64
	if err := r.Scan(&sub.ChatID, &sub.GrantedBy, &grantedAt, &expiresAt, &sub.Status); err != nil {
		return Subscription{}, err
	}
	sub.GrantedAt = time.UnixMilli(grantedAt)
	sub.ExpiresAt = time.UnixMilli(expiresAt)
	return sub, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
