// Package watch holds the chat-message model, the keyword matcher, and the
// duplicate-suppression cache used by the dispatch loop.
package watch

import (
	"hash/fnv"
	"time"
)

// Message is one chat line observed on the feed.
type Message struct {
	// Text is the raw chat line.
	Text string
	// Channel is the zero-padded channel label (e.g. "0042"), empty if unknown.
	Channel string
	// Author is the sender's display name, empty if unknown.
	Author string
	// ObservedAt is when the bot received the message, not when it was sent.
	ObservedAt time.Time
}

// Fingerprint returns a stable 64-bit content fingerprint of the message text.
// Two messages with identical text collapse to the same fingerprint regardless
// of channel or author, which is what duplicate suppression wants: the same
// line spammed across channels should only notify once.
func (m Message) Fingerprint() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(m.Text))
	return h.Sum64()
}
