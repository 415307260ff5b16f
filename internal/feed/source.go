// Package feed ingests the upstream chat stream over websocket and buffers
// messages until the dispatch loop drains them.
package feed

import (
	"time"

	"palwatch/internal/watch"
)

// Source is anything the dispatch loop can poll for messages.
type Source interface {
	// Drain returns all buffered messages and clears the buffer.
	Drain() []watch.Message

	// Connected reports whether the source currently has a live upstream.
	Connected() bool

	// LastMessage returns when the source last produced a message
	// (zero if never).
	LastMessage() time.Time
}
