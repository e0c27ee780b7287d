package store

// Package store is relaybot's SQLite persistence layer.
//
// It holds two independent collections:
//   - events: append-only ingested alert records (unique event id)
//   - subscriptions: time-bounded relay recipients (upsert by chat id)
