// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package config defines the service configuration and loads it from
// layered sources: struct defaults, an optional YAML file, and environment
// variables, in increasing priority.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Events  EventsConfig  `koanf:"events"`
	Feed    FeedConfig    `koanf:"feed"`
	API     APIConfig     `koanf:"api"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds the Badger settings.
type StorageConfig struct {
	Dir          string `koanf:"dir"`
	ScanPageSize int    `koanf:"scan_page_size"`
}

// EventsConfig selects and tunes the event transport.
type EventsConfig struct {
	// Transport is "channel" (in-process, default) or "nats" (durable).
	Transport string       `koanf:"transport"`
	Router    RouterConfig `koanf:"router"`
	NATS      NATSConfig   `koanf:"nats"`
}

// RouterConfig tunes the Watermill consumer middleware.
type RouterConfig struct {
	CloseTimeout         time.Duration `koanf:"close_timeout"`
	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`
	ThrottlePerSecond    int64         `koanf:"throttle_per_second"`
	PoisonTopic          string        `koanf:"poison_topic"`
}

// NATSConfig holds the durable transport settings.
type NATSConfig struct {
	URL              string        `koanf:"url"`
	Embedded         bool          `koanf:"embedded"`
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port"`
	StoreDir         string        `koanf:"store_dir"`
	MaxMemory        int64         `koanf:"max_memory"`
	MaxStore         int64         `koanf:"max_store"`
	StreamName       string        `koanf:"stream_name"`
	StreamMaxAge     time.Duration `koanf:"stream_max_age"`
	DuplicateWindow  time.Duration `koanf:"duplicate_window"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count"`
	MaxDeliver       int           `koanf:"max_deliver"`
	MaxAckPending    int           `koanf:"max_ack_pending"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// FeedConfig tunes the materialized feeds.
type FeedConfig struct {
	// Size is the per-type bucket capacity, shared by the incremental
	// updater and the full rebuilder.
	Size int `koanf:"size"`

	// NewContentBoost multiplies scores of freshly published content.
	NewContentBoost float64 `koanf:"new_content_boost"`
}

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig tunes the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Transport values.
const (
	TransportChannel = "channel"
	TransportNATS    = "nats"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Dir:          "/data/crescendo",
			ScanPageSize: 250,
		},
		Events: EventsConfig{
			Transport: TransportChannel,
			Router: RouterConfig{
				CloseTimeout:         30 * time.Second,
				RetryMaxRetries:      5,
				RetryInitialInterval: 500 * time.Millisecond,
				RetryMaxInterval:     time.Minute,
				RetryMultiplier:      2.0,
				ThrottlePerSecond:    0,
				PoisonTopic:          "dlq.events",
			},
			NATS: NATSConfig{
				URL:              "nats://127.0.0.1:4222",
				Embedded:         true,
				Host:             "127.0.0.1",
				Port:             4222,
				StoreDir:         "/data/nats/jetstream",
				MaxMemory:        1 << 30,
				MaxStore:         10 << 30,
				StreamName:       "CRESCENDO_EVENTS",
				StreamMaxAge:     7 * 24 * time.Hour,
				DuplicateWindow:  2 * time.Minute,
				DurableName:      "crescendo",
				QueueGroup:       "crescendo-workers",
				SubscribersCount: 4,
				MaxDeliver:       6,
				MaxAckPending:    512,
				AckWaitTimeout:   30 * time.Second,
				MaxReconnects:    -1,
				ReconnectWait:    2 * time.Second,
				CloseTimeout:     30 * time.Second,
			},
		},
		Feed: FeedConfig{
			Size:            10,
			NewContentBoost: 10,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if c.Storage.ScanPageSize <= 0 {
		return fmt.Errorf("storage.scan_page_size must be positive")
	}

	switch c.Events.Transport {
	case TransportChannel:
	case TransportNATS:
		if c.Events.NATS.URL == "" && !c.Events.NATS.Embedded {
			return fmt.Errorf("events.nats.url is required when the embedded server is disabled")
		}
		if c.Events.NATS.StreamName == "" {
			return fmt.Errorf("events.nats.stream_name is required")
		}
	default:
		return fmt.Errorf("events.transport %q is not %q or %q", c.Events.Transport, TransportChannel, TransportNATS)
	}

	if c.Events.Router.RetryMaxRetries < 0 {
		return fmt.Errorf("events.router.retry_max_retries must not be negative")
	}
	if c.Feed.Size <= 0 {
		return fmt.Errorf("feed.size must be positive")
	}
	if c.Feed.NewContentBoost <= 0 {
		return fmt.Errorf("feed.new_content_boost must be positive")
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes are inconsistent")
	}
	return nil
}
