// Package dispatch runs the periodic poll-match-notify cycle: drain the
// feed buffer, suppress duplicates, match every subscriber's keywords, and
// hand hits to the router.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"palwatch/internal/eventbus"
	"palwatch/internal/feed"
	"palwatch/internal/observability/metrics"
	"palwatch/internal/router"
	"palwatch/internal/subs"
	"palwatch/internal/watch"
	logx "palwatch/pkg/logx"
)

const (
	DefaultSchedule = "@every 30s"

	// syntheticWarnEvery throttles the "feed unavailable" warning.
	syntheticWarnEvery = 5 * time.Minute
)

type Config struct {
	Schedule     string
	DedupCeiling int
	DedupFloor   int
}

// ValidateSchedule reports whether spec is an acceptable cron expression.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	_, err := cron.ParseStandard(spec)
	return err
}

// BatchStats is published on the event bus after every cycle.
type BatchStats struct {
	Drained   int
	Deduped   int
	Notified  int
	Synthetic bool
}

type Loop struct {
	source    feed.Source
	synthetic *feed.Synthetic
	store     *subs.Store
	router    *router.Router
	dedup     *watch.DedupCache
	log       logx.Logger
	bus       eventbus.Bus

	schedule string
	cron     *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	running  atomic.Bool // overlap guard
	lastRun  atomic.Int64
	lastWarn atomic.Int64
	sendWG   sync.WaitGroup
}

func New(cfg Config, source feed.Source, store *subs.Store, rt *router.Router, log logx.Logger, bus eventbus.Bus) *Loop {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{
		source:    source,
		synthetic: feed.NewSynthetic(),
		store:     store,
		router:    rt,
		dedup:     watch.NewDedup(cfg.DedupCeiling, cfg.DedupFloor),
		log:       log,
		bus:       bus,
		schedule:  cfg.Schedule,
	}
}

func (l *Loop) Start(ctx context.Context) error {
	if err := ValidateSchedule(l.schedule); err != nil {
		return fmt.Errorf("dispatch schedule %q: %w", l.schedule, err)
	}
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.cron = cron.New()
	if _, err := l.cron.AddFunc(l.schedule, func() { l.RunOnce(l.ctx) }); err != nil {
		return fmt.Errorf("dispatch schedule %q: %w", l.schedule, err)
	}
	l.cron.Start()
	l.log.Info("dispatch started", logx.String("schedule", l.schedule))
	return nil
}

func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}
	if l.cron != nil {
		stopped := l.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Wait for in-flight sends, bounded by ctx.
	done := make(chan struct{})
	go func() {
		l.sendWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastRun returns when the last cycle started (zero if never).
func (l *Loop) LastRun() time.Time {
	ns := l.lastRun.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// RunOnce executes a single dispatch cycle. If the previous cycle is still
// running (slow deliveries), the cycle is skipped rather than stacked.
func (l *Loop) RunOnce(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		l.log.Warn("dispatch cycle still running; skipping tick")
		return
	}
	defer l.running.Store(false)

	l.lastRun.Store(time.Now().UnixNano())
	metrics.DispatchTicks.Inc()

	stats := BatchStats{}
	batch := l.source.Drain()
	stats.Drained = len(batch)

	// A quiet feed, connected or not, falls back to the synthetic trickle.
	if len(batch) == 0 {
		l.warnUnavailable()
		batch = l.synthetic.Drain()
		stats.Synthetic = len(batch) > 0
	}

	if len(batch) > 0 {
		snapshot := l.store.Snapshot()
		for _, msg := range batch {
			fp := msg.Fingerprint()
			if l.dedup.Seen(fp) {
				stats.Deduped++
				metrics.DispatchDeduped.Inc()
				continue
			}
			l.dedup.Record(fp)

			for userID, keywords := range snapshot {
				matched := watch.Match(msg.Text, keywords)
				if len(matched) == 0 {
					continue
				}
				stats.Notified++
				l.send(ctx, userID, msg, matched)
			}
		}
	}

	if l.bus != nil {
		l.bus.Publish(eventbus.Event{Type: eventbus.DispatchBatch, Data: stats})
	}
	if stats.Drained > 0 || stats.Notified > 0 {
		l.log.Debug("dispatch cycle",
			logx.Int("drained", stats.Drained),
			logx.Int("deduped", stats.Deduped),
			logx.Int("notified", stats.Notified),
			logx.Bool("synthetic", stats.Synthetic),
		)
	}
}

// send delivers asynchronously so one slow recipient doesn't stall the
// cycle. Panics are isolated per send.
func (l *Loop) send(ctx context.Context, userID int64, msg watch.Message, matched []string) {
	chat, hasChat := l.store.Channel(userID)
	rec := router.Recipient{UserID: userID, PreferredChat: chat, HasPreferred: hasChat}

	l.sendWG.Add(1)
	go func() {
		defer l.sendWG.Done()
		defer func() {
			if r := recover(); r != nil {
				l.log.Error("notify panicked",
					logx.Int64("user", userID), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		l.router.Notify(ctx, rec, msg, matched)
	}()
}

// Flush waits for in-flight sends. Test helper and shutdown aid.
func (l *Loop) Flush() { l.sendWG.Wait() }

func (l *Loop) warnUnavailable() {
	now := time.Now().UnixNano()
	last := l.lastWarn.Load()
	if last != 0 && time.Duration(now-last) < syntheticWarnEvery {
		return
	}
	if l.lastWarn.CompareAndSwap(last, now) {
		l.log.Warn("no live feed messages; falling back to synthetic samples")
	}
}
