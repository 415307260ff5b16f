// Package storage persists subscriber keywords and channel preferences.
//
// Two drivers exist: a dependency-free file backend (atomic JSON snapshots)
// and a SQLite backend. Both store whole tables per save; the dataset is
// small (per-user keyword lists) and wholesale writes keep crash recovery
// trivial.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "palwatch/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON files, atomic replace on save
//   - "sqlite": SQLite database file
//
// If Driver is empty, "file" is assumed.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Backend is the persistence API used by the subscription store.
//
// Keywords maps subscriber ID to that subscriber's watch list.
// Channels maps subscriber ID to a preferred notification chat ID.
type Backend interface {
	LoadKeywords(ctx context.Context) (map[int64][]string, error)
	SaveKeywords(ctx context.Context, m map[int64][]string) error

	LoadChannels(ctx context.Context) (map[int64]int64, error)
	SaveChannels(ctx context.Context, m map[int64]int64) error

	Close() error
}

// Open initializes the configured backend.
func Open(cfg Config, log logx.Logger) (Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
