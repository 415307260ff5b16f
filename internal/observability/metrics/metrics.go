// Package metrics exposes Prometheus counters and gauges for the ingest
// and delivery pipeline. Collectors are registered on the default registry
// and served by the status server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_feed_messages_ingested_total",
		Help: "Chat messages accepted into the buffer.",
	})
	FeedDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_feed_decode_failures_total",
		Help: "Feed frames that failed to decode.",
	})
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_feed_reconnects_total",
		Help: "Reconnect attempts against the feed endpoint.",
	})
	FeedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_feed_messages_dropped_total",
		Help: "Messages evicted because the buffer was full.",
	})
	FeedConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "palwatch_feed_connected",
		Help: "1 while the feed websocket is established.",
	})
	FeedBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "palwatch_feed_buffer_depth",
		Help: "Messages currently waiting in the buffer.",
	})

	DispatchTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_dispatch_ticks_total",
		Help: "Dispatch cycles executed.",
	})
	DispatchDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_dispatch_deduped_total",
		Help: "Messages suppressed as duplicates.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palwatch_notifications_sent_total",
		Help: "Notifications delivered, labeled by target kind.",
	}, []string{"target"})
	NotificationsUndeliverable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palwatch_notifications_undeliverable_total",
		Help: "Notifications dropped after every delivery target failed.",
	})
)
