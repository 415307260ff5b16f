package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"palwatch/internal/eventbus"
	"palwatch/internal/observability/metrics"
	"palwatch/internal/watch"
	logx "palwatch/pkg/logx"
)

const (
	DefaultReconnectDelay   = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultBufferSize       = 100
)

type Config struct {
	URL              string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	BufferSize       int

	// InsecureSkipVerify disables TLS certificate verification.
	// Explicit opt-in only.
	InsecureSkipVerify bool
}

// Manager maintains the websocket connection and the bounded message buffer.
//
// Reconnect policy is a fixed delay, not backoff: the upstream drops
// connections routinely and the next attempt usually succeeds, so there is
// nothing to be gained from backing off.
//
// The buffer drops the OLDEST message when full. Subscribers care about the
// most recent chat lines; stale ones age out first.
type Manager struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	connected atomic.Bool
	lastMsg   atomic.Int64 // unix nano, 0 = never

	mu      sync.Mutex
	buf     []watch.Message
	dropped uint64
}

func NewManager(cfg Config, log logx.Logger, bus eventbus.Bus) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{cfg: cfg, log: log, bus: bus}
}

// Config returns the manager's effective (defaulted) configuration.
func (m *Manager) Config() Config { return m.cfg }

func (m *Manager) Connected() bool { return m.connected.Load() }

func (m *Manager) LastMessage() time.Time {
	ns := m.lastMsg.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Drain returns all buffered messages and clears the buffer.
func (m *Manager) Drain() []watch.Message {
	m.mu.Lock()
	out := m.buf
	m.buf = nil
	m.mu.Unlock()
	metrics.FeedBufferDepth.Set(0)
	return out
}

func (m *Manager) push(msg watch.Message) {
	m.mu.Lock()
	if len(m.buf) >= m.cfg.BufferSize {
		m.buf = m.buf[1:]
		m.dropped++
		metrics.FeedDropped.Inc()
	}
	m.buf = append(m.buf, msg)
	depth := len(m.buf)
	m.mu.Unlock()

	m.lastMsg.Store(msg.ObservedAt.UnixNano())
	metrics.FeedIngested.Inc()
	metrics.FeedBufferDepth.Set(float64(depth))
}

// Run dials the feed and reads until ctx is canceled. Every disconnect,
// whatever the cause, leads to another attempt after the fixed delay.
func (m *Manager) Run(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.cfg.HandshakeTimeout,
	}
	if m.cfg.InsecureSkipVerify {
		m.log.Warn("feed TLS certificate verification is DISABLED", logx.String("url", m.cfg.URL))
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.FeedReconnects.Inc()
			m.log.Warn("feed dial failed", logx.String("url", m.cfg.URL), logx.Err(err), logx.Duration("retry_in", m.cfg.ReconnectDelay))
			if !sleepCtx(ctx, m.cfg.ReconnectDelay) {
				return nil
			}
			continue
		}

		m.log.Info("feed connected", logx.String("url", m.cfg.URL))
		m.connected.Store(true)
		metrics.FeedConnected.Set(1)
		if m.bus != nil {
			m.bus.Publish(eventbus.Event{Type: eventbus.FeedConnected})
		}

		err = m.readLoop(ctx, conn)

		m.connected.Store(false)
		metrics.FeedConnected.Set(0)
		if m.bus != nil {
			m.bus.Publish(eventbus.Event{Type: eventbus.FeedDisconnected, Data: errString(err)})
		}
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		metrics.FeedReconnects.Inc()
		m.log.Warn("feed disconnected", logx.Err(err), logx.Duration("retry_in", m.cfg.ReconnectDelay))
		if !sleepCtx(ctx, m.cfg.ReconnectDelay) {
			return nil
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// ReadMessage has no context support; close the connection to unblock it
	// when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msgs, err := decodeFrame(data, time.Now())
		if err != nil {
			metrics.FeedDecodeFailures.Inc()
			m.log.Debug("feed frame dropped", logx.Err(err))
			continue
		}
		for _, msg := range msgs {
			m.push(msg)
		}
	}
}

// DropReportLoop periodically logs how many messages were evicted from the
// buffer, instead of logging per message.
func (m *Manager) DropReportLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	report := func() {
		m.mu.Lock()
		n := m.dropped
		m.dropped = 0
		m.mu.Unlock()
		if n > 0 {
			m.log.Warn("feed buffer overflowed; oldest messages dropped", logx.Uint64("count", n), logx.Int("buffer_size", m.cfg.BufferSize))
		}
	}
	for {
		select {
		case <-ctx.Done():
			report()
			return
		case <-ticker.C:
			report()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errString(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	return err.Error()
}
