// Package config loads relaybot's startup configuration.
//
// Config is read once at process start and treated as immutable
// afterwards; components receive it (or a sub-struct) by reference.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Relay    RelayConfig    `json:"relay"`
	HTTP     HTTPConfig     `json:"http"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Digest   DigestConfig   `json:"digest,omitempty"`
}

type TelegramConfig struct {
	Token   string `json:"token"`
	AdminID int64  `json:"admin_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// RelayConfig controls message fan-out.
//
// Fields lists the payload keys rendered into every relayed message;
// keys absent from an event's payload render as "N/A".
type RelayConfig struct {
	// PrimaryChatID is always the first delivery target. Defaults to
	// telegram.admin_id when omitted.
	PrimaryChatID int64    `json:"primary_chat_id,omitempty"`
	Title         string   `json:"title,omitempty"`
	Fields        []string `json:"fields,omitempty"`
	// SendTimeout bounds a single delivery attempt (Go duration string).
	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
	// RatePerMin caps ingestion requests per client IP. 0 disables.
	RatePerMin int `json:"rate_per_min,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DigestConfig controls the optional daily stats digest to the admin chat.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "0 9 * * *"
}

// Load reads and strictly decodes the config file (JSON or YAML).
// Unknown keys are rejected so typos are caught at startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	jsonBytes, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse config (%s): %w", format, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config (%s): %w", format, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Relay.PrimaryChatID == 0 {
		c.Relay.PrimaryChatID = c.Telegram.AdminID
	}
	if c.Relay.Title == "" {
		c.Relay.Title = "New alert"
	}
	if len(c.Relay.Fields) == 0 {
		c.Relay.Fields = []string{"service", "check", "status", "detail"}
	}
	if c.Relay.RatePerSec <= 0 {
		c.Relay.RatePerSec = 10
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9000"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/relaybot.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if c.Telegram.AdminID == 0 {
		return errors.New("telegram.admin_id is required")
	}
	for _, raw := range []struct {
		key string
		val string
	}{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"relay.send_timeout", c.Relay.SendTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if raw.val == "" {
			continue
		}
		if _, err := time.ParseDuration(raw.val); err != nil {
			return fmt.Errorf("%s: %w", raw.key, err)
		}
	}
	return nil
}

// DurationOr parses a Go duration string, falling back to def when the
// value is empty or invalid.
func DurationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
