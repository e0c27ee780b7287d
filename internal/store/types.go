package store

import "time"

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
)

// Subscription is a time-bounded relay recipient entry.
// At most one entry exists per chat id; a re-grant replaces it wholesale.
type Subscription struct {
	ChatID    int64
	GrantedBy string
	GrantedAt time.Time
	ExpiresAt time.Time
	Status    string
}
