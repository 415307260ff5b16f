package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Feed controls the upstream chat stream connection.
	Feed FeedConfig `json:"feed"`

	// Dispatch controls the periodic poll-match-notify cycle.
	Dispatch DispatchConfig `json:"dispatch"`

	Router RouterConfig `json:"router"`

	// Storage is the persistence layer for subscriptions.
	// If omitted, a file store at ./palwatch_store is used.
	Storage *StorageConfig `json:"storage,omitempty"`

	Status StatusConfig `json:"status,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
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

// FeedConfig controls the websocket chat feed.
//
// All durations are Go duration strings (e.g. "5s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - reconnect_delay: "5s"
//   - handshake_timeout: "10s"
//   - buffer_size: 100
type FeedConfig struct {
	URL string `json:"url"`

	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay   string `json:"reconnect_delay,omitempty"`
	HandshakeTimeout string `json:"handshake_timeout,omitempty"`

	// BufferSize bounds the in-memory message buffer. When full, the oldest
	// message is dropped to make room for the newest.
	BufferSize int `json:"buffer_size,omitempty"`

	// InsecureSkipVerify disables TLS certificate verification for the feed
	// endpoint. Off by default; enable only for endpoints with known-broken
	// certificate chains.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`

	// Synthetic replaces the live feed with a locally generated sample stream.
	// Intended for development and demos when the upstream is unreachable.
	Synthetic bool `json:"synthetic,omitempty"`
}

// DispatchConfig controls the notification dispatch loop.
//
// Defaults (when fields are omitted/zero):
//   - schedule: "@every 30s"
//   - dedup_ceiling: 1000
//   - dedup_floor: 500
type DispatchConfig struct {
	// Schedule is a cron spec (robfig/cron v3 syntax, "@every 30s" style
	// descriptors included).
	Schedule string `json:"schedule,omitempty"`

	// DedupCeiling/DedupFloor bound the duplicate-suppression cache:
	// when the cache grows past the ceiling it is shrunk back to the floor.
	DedupCeiling int `json:"dedup_ceiling,omitempty"`
	DedupFloor   int `json:"dedup_floor,omitempty"`
}

// RouterConfig controls notification delivery.
type RouterConfig struct {
	// FallbackChatID receives notifications for subscribers that have no
	// usable preferred channel and cannot be reached directly. 0 disables
	// the global fallback.
	FallbackChatID int64 `json:"fallback_chat_id,omitempty"`

	// MaxTextLen truncates quoted message text in notifications. Default 800.
	MaxTextLen int `json:"max_text_len,omitempty"`

	// RatePerSec caps outbound sends. Default 3.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// StorageConfig selects the subscription persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./palwatch_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// StatusConfig controls the optional status/metrics HTTP server.
//
// Prefer binding to localhost; there is no auth on these endpoints.
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8600"
}
