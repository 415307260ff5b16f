// Package status serves the operational HTTP surface: a JSON status
// endpoint, a liveness probe, and Prometheus metrics.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "palwatch/pkg/logx"
)

const DefaultAddr = "127.0.0.1:8600"

// Stats is what the server reads from the running bot.
type Stats interface {
	FeedConnected() bool
	LastFeedMessage() time.Time
	LastDispatch() time.Time
	SubscriptionCounts() (subscribers, keywords int)
}

type Config struct {
	Addr string
}

type Server struct {
	cfg     Config
	log     logx.Logger
	stats   Stats
	started time.Time

	srv *http.Server
}

func NewServer(cfg Config, stats Stats, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, log: log, stats: stats, started: time.Now()}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("status listen %s: %w", s.cfg.Addr, err)
	}
	s.log.Info("status server listening", logx.String("addr", s.cfg.Addr))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server failed", logx.Err(err))
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(sctx)
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	subsCount, kwCount := s.stats.SubscriptionCounts()
	state := "disconnected"
	if s.stats.FeedConnected() {
		state = "connected"
	}
	lastFeed := "never"
	if t := s.stats.LastFeedMessage(); !t.IsZero() {
		lastFeed = t.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<title>palwatch</title>
<h1>palwatch</h1>
<ul>
<li>feed: %s</li>
<li>last message: %s</li>
<li>subscribers: %d</li>
<li>keywords: %d</li>
<li>uptime: %s</li>
</ul>
<p><a href="/api/status">/api/status</a> · <a href="/healthz">/healthz</a> · <a href="/metrics">/metrics</a></p>
`, state, lastFeed, subsCount, kwCount, time.Since(s.started).Round(time.Second))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type statusPayload struct {
	Uptime          string `json:"uptime"`
	FeedConnected   bool   `json:"feed_connected"`
	LastFeedMessage string `json:"last_feed_message,omitempty"`
	LastDispatch    string `json:"last_dispatch,omitempty"`
	Subscribers     int    `json:"subscribers"`
	Keywords        int    `json:"keywords"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	subsCount, kwCount := s.stats.SubscriptionCounts()
	p := statusPayload{
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		FeedConnected: s.stats.FeedConnected(),
		Subscribers:   subsCount,
		Keywords:      kwCount,
	}
	if t := s.stats.LastFeedMessage(); !t.IsZero() {
		p.LastFeedMessage = t.UTC().Format(time.RFC3339)
	}
	if t := s.stats.LastDispatch(); !t.IsZero() {
		p.LastDispatch = t.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(p)
}
