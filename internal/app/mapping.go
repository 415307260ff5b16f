package app

import (
	"palwatch/internal/config"
	"palwatch/internal/feed"
	"palwatch/internal/router"
	"palwatch/internal/storage"
)

func mapFeedConfig(cfg *config.Config) (feed.Config, error) {
	reconnect, err := config.ParseDurationOrDefault("feed.reconnect_delay", cfg.Feed.ReconnectDelay, feed.DefaultReconnectDelay)
	if err != nil {
		return feed.Config{}, err
	}
	handshake, err := config.ParseDurationOrDefault("feed.handshake_timeout", cfg.Feed.HandshakeTimeout, feed.DefaultHandshakeTimeout)
	if err != nil {
		return feed.Config{}, err
	}
	bufSize := cfg.Feed.BufferSize
	if bufSize <= 0 {
		bufSize = feed.DefaultBufferSize
	}
	return feed.Config{
		URL:                cfg.Feed.URL,
		ReconnectDelay:     reconnect,
		HandshakeTimeout:   handshake,
		BufferSize:         bufSize,
		InsecureSkipVerify: cfg.Feed.InsecureSkipVerify,
	}, nil
}

func mapRouterConfig(cfg *config.Config) router.Config {
	return router.Config{
		FallbackChatID: cfg.Router.FallbackChatID,
		MaxTextLen:     cfg.Router.MaxTextLen,
		RatePerSec:     cfg.Router.RatePerSec,
	}
}

func mapStorageConfig(cfg *config.Config) storage.Config {
	if cfg.Storage == nil {
		return storage.Config{Driver: "file"}
	}
	// Bad durations are rejected by Validate before this runs.
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}
}
