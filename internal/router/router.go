// Package router delivers keyword notifications. For each recipient it
// walks a fixed chain of targets and stops at the first success:
//
//  1. the recipient's preferred chat (if set)
//  2. a direct message
//  3. the global fallback chat (if configured)
//
// A notification that exhausts the chain is dropped and counted.
package router

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"palwatch/internal/eventbus"
	"palwatch/internal/observability/metrics"
	"palwatch/internal/transport"
	"palwatch/internal/watch"
	logx "palwatch/pkg/logx"
)

type Target string

const (
	TargetPreferred Target = "preferred"
	TargetDirect    Target = "direct"
	TargetFallback  Target = "fallback"
	TargetDropped   Target = "dropped"
)

// Recipient is who gets the notification and where they prefer it.
type Recipient struct {
	UserID        int64
	PreferredChat int64
	HasPreferred  bool
}

// Outcome records where (or whether) a notification landed.
type Outcome struct {
	UserID  int64
	Target  Target
	Matched []string
	Err     error // last delivery error when Target == TargetDropped
}

type Config struct {
	FallbackChatID int64
	MaxTextLen     int
	RatePerSec     int
}

const DefaultRatePerSec = 3

// Sender is the subset of the transport adapter the router needs.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
	SendDirect(ctx context.Context, userID int64, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

type Router struct {
	sender Sender
	log    logx.Logger
	bus    eventbus.Bus

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, sender Sender, log logx.Logger, bus eventbus.Bus) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{sender: sender, log: log, bus: bus}
	r.Apply(cfg)
	return r
}

// Apply swaps delivery settings at runtime.
func (r *Router) Apply(cfg Config) {
	if cfg.MaxTextLen <= 0 {
		cfg.MaxTextLen = DefaultMaxTextLen
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	r.mu.Lock()
	r.cfg = cfg
	r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	r.mu.Unlock()
}

func (r *Router) snapshot() (Config, *rate.Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg, r.limiter
}

// Notify walks the delivery chain for one recipient and message.
func (r *Router) Notify(ctx context.Context, rec Recipient, msg watch.Message, matched []string) Outcome {
	cfg, limiter := r.snapshot()
	text := FormatNotification(matched, msg, cfg.MaxTextLen)
	out := Outcome{UserID: rec.UserID, Matched: matched}

	var lastErr error

	// 1. Preferred chat. A failure here falls through to DM; a stale chat
	// preference should not silence the subscriber.
	if rec.HasPreferred {
		if err := r.waitAndSendChat(ctx, limiter, rec.PreferredChat, text); err == nil {
			out.Target = TargetPreferred
			r.record(out)
			return out
		} else {
			lastErr = err
			r.log.Warn("preferred channel delivery failed; trying direct",
				logx.Int64("user", rec.UserID), logx.Int64("chat", rec.PreferredChat), logx.Err(err))
		}
	}

	// 2. Direct message.
	if err := r.waitAndSendDirect(ctx, limiter, rec.UserID, text); err == nil {
		out.Target = TargetDirect
		r.record(out)
		return out
	} else {
		lastErr = err
		r.log.Debug("direct delivery failed", logx.Int64("user", rec.UserID), logx.Err(err))
	}

	// 3. Global fallback chat.
	if cfg.FallbackChatID != 0 {
		fbText := fmt.Sprintf("（無法通知訂閱者 %d）\n%s", rec.UserID, text)
		if err := r.waitAndSendChat(ctx, limiter, cfg.FallbackChatID, fbText); err == nil {
			out.Target = TargetFallback
			r.record(out)
			return out
		} else {
			lastErr = err
			r.log.Warn("fallback delivery failed", logx.Int64("chat", cfg.FallbackChatID), logx.Err(err))
		}
	}

	out.Target = TargetDropped
	out.Err = lastErr
	r.record(out)
	return out
}

func (r *Router) waitAndSendChat(ctx context.Context, limiter *rate.Limiter, chatID int64, text string) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := r.sender.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, nil)
	return err
}

func (r *Router) waitAndSendDirect(ctx context.Context, limiter *rate.Limiter, userID int64, text string) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := r.sender.SendDirect(ctx, userID, text, nil)
	return err
}

func (r *Router) record(out Outcome) {
	if out.Target == TargetDropped {
		metrics.NotificationsUndeliverable.Inc()
		r.log.Warn("notification undeliverable",
			logx.Int64("user", out.UserID), logx.Any("matched", out.Matched), logx.Err(out.Err))
		if r.bus != nil {
			r.bus.Publish(eventbus.Event{Type: eventbus.RouterUndeliverable, Data: out})
		}
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(out.Target)).Inc()
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Type: eventbus.RouterDelivered, Data: out})
	}
}
