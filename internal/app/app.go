// Package app wires the bot together: config, logging, transport, feed,
// subscriptions, dispatch, and the status server.
package app

import (
	"context"
	"fmt"
	"time"

	"palwatch/internal/commands"
	"palwatch/internal/config"
	"palwatch/internal/dispatch"
	"palwatch/internal/eventbus"
	"palwatch/internal/feed"
	"palwatch/internal/router"
	"palwatch/internal/runtime/supervisor"
	"palwatch/internal/status"
	"palwatch/internal/storage"
	"palwatch/internal/subs"
	"palwatch/internal/transport"
	"palwatch/internal/transport/telegram"
	logx "palwatch/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	backend    storage.Backend
	backendCfg storage.Config
	store      *subs.Store

	adapter transport.Adapter
	source  feed.Source
	manager *feed.Manager // nil when running synthetic
	rt      *router.Router
	loop    *dispatch.Loop
	front   *commands.Front
	statusS *status.Server

	updates chan transport.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	backendCfg := mapStorageConfig(cfg)
	backend, err := storage.Open(backendCfg, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	store, err := subs.Load(context.Background(), backend, logSvc.Logger().With(logx.String("comp", "subs")))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	var (
		source  feed.Source
		manager *feed.Manager
	)
	if cfg.Feed.Synthetic {
		log.Warn("running with synthetic feed; no live connection will be made")
		source = feed.NewSynthetic()
	} else {
		fc, err := mapFeedConfig(cfg)
		if err != nil {
			return nil, err
		}
		manager = feed.NewManager(fc, logSvc.Logger().With(logx.String("comp", "feed")), bus)
		source = manager
	}

	rt := router.New(mapRouterConfig(cfg), ad, logSvc.Logger().With(logx.String("comp", "router")), bus)

	loop := dispatch.New(dispatch.Config{
		Schedule:     cfg.Dispatch.Schedule,
		DedupCeiling: cfg.Dispatch.DedupCeiling,
		DedupFloor:   cfg.Dispatch.DedupFloor,
	}, source, store, rt, logSvc.Logger().With(logx.String("comp", "dispatch")), bus)

	front := commands.NewFront(store, ad, ad.Username(), logSvc.Logger().With(logx.String("comp", "commands")))

	a := &App{
		cfgPath:    cfgPath,
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		bus:        bus,
		backend:    backend,
		backendCfg: backendCfg,
		store:      store,
		adapter:    ad,
		source:     source,
		manager:    manager,
		rt:         rt,
		loop:       loop,
		front:      front,
		updates:    make(chan transport.Update, 256),
	}

	if cfg.Status.Enabled {
		a.statusS = status.NewServer(status.Config{Addr: cfg.Status.Addr},
			&statsView{app: a}, logSvc.Logger().With(logx.String("comp", "status")))
	}
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := dispatch.ValidateSchedule(cfg.Dispatch.Schedule); err != nil {
			return fmt.Errorf("dispatch.schedule: %w", err)
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	if a.manager != nil {
		a.sup.GoRestart("feed.connect", a.manager.Run,
			supervisor.WithRestartBackoff(time.Second, 30*time.Second),
		)
		a.sup.Go0("feed.drop_report", a.manager.DropReportLoop)
	}

	if err := a.loop.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go0("commands.dispatch", func(c context.Context) {
		a.front.Run(c, a.updates)
	})

	if a.statusS != nil {
		if err := a.statusS.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	// Event log for observability/debug.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// Hot reload fan-out.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(newCfg)
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started")
	return nil
}

// applyConfig applies what can change live (logging, router) and warns
// about what needs a restart (feed, storage, dispatch schedule).
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.rt.Apply(mapRouterConfig(cfg))

	if a.manager != nil {
		if fc, err := mapFeedConfig(cfg); err == nil && fc != a.manager.Config() {
			a.log.Warn("feed config changed; restart required for changes to take effect")
		}
	}
	if mapStorageConfig(cfg) != a.backendCfg {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Run each shutdown step with an upper bound so one component can't
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("dispatch", 3*time.Second, a.loop.Stop)
	if a.statusS != nil {
		step("status", 1*time.Second, a.statusS.Stop)
	}
	step("adapter", 2*time.Second, a.adapter.Stop)
	step("storage", 1*time.Second, func(context.Context) error { return a.backend.Close() })
	step("supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// statsView adapts live components to the status server's read interface.
type statsView struct {
	app *App
}

func (v *statsView) FeedConnected() bool        { return v.app.source.Connected() }
func (v *statsView) LastFeedMessage() time.Time { return v.app.source.LastMessage() }
func (v *statsView) LastDispatch() time.Time    { return v.app.loop.LastRun() }
func (v *statsView) SubscriptionCounts() (int, int) {
	return v.app.store.Counts()
}
