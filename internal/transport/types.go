// Package transport defines the channel-agnostic send surface the
// relay and control handlers use. Telegram is the only adapter today.
package transport

import "context"

type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers one message to one chat. Implementations fail
// per-target; the caller decides what a failure means.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
