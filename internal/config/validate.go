package config

import (
	"fmt"
	"strings"
)

// Validate checks structural invariants that do not depend on runtime state.
// The app layer adds checks that need live components (e.g. cron spec parsing).
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token: required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}

	if !c.Feed.Synthetic {
		u := strings.TrimSpace(c.Feed.URL)
		if u == "" {
			return fmt.Errorf("feed.url: required unless feed.synthetic is set")
		}
		if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
			return fmt.Errorf("feed.url: must be a ws:// or wss:// URL")
		}
	}
	if _, err := ParseDurationField("feed.reconnect_delay", c.Feed.ReconnectDelay); err != nil {
		return err
	}
	if _, err := ParseDurationField("feed.handshake_timeout", c.Feed.HandshakeTimeout); err != nil {
		return err
	}
	if c.Feed.BufferSize < 0 {
		return fmt.Errorf("feed.buffer_size: must be >= 0")
	}

	if c.Dispatch.DedupCeiling < 0 || c.Dispatch.DedupFloor < 0 {
		return fmt.Errorf("dispatch: dedup bounds must be >= 0")
	}
	if c.Dispatch.DedupCeiling > 0 && c.Dispatch.DedupFloor > c.Dispatch.DedupCeiling {
		return fmt.Errorf("dispatch.dedup_floor: must be <= dedup_ceiling")
	}

	if c.Router.MaxTextLen < 0 {
		return fmt.Errorf("router.max_text_len: must be >= 0")
	}
	if c.Router.RatePerSec < 0 {
		return fmt.Errorf("router.rate_per_sec: must be >= 0")
	}

	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	return nil
}
