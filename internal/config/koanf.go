// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/crescendo/config.yaml",
	"/etc/crescendo/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources: struct defaults,
// then an optional YAML file, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings routes well-known environment variables onto config paths.
// Anything not listed here is ignored rather than guessed at.
var envMappings = map[string]string{
	"HTTP_HOST":              "server.host",
	"HTTP_PORT":              "server.port",
	"DATA_DIR":               "storage.dir",
	"SCAN_PAGE_SIZE":         "storage.scan_page_size",
	"EVENTS_TRANSPORT":       "events.transport",
	"EVENTS_POISON_TOPIC":    "events.router.poison_topic",
	"EVENTS_RETRY_MAX":       "events.router.retry_max_retries",
	"NATS_URL":               "events.nats.url",
	"NATS_EMBEDDED":          "events.nats.embedded",
	"NATS_HOST":              "events.nats.host",
	"NATS_PORT":              "events.nats.port",
	"NATS_STORE_DIR":         "events.nats.store_dir",
	"NATS_STREAM_NAME":       "events.nats.stream_name",
	"NATS_DURABLE_NAME":      "events.nats.durable_name",
	"NATS_QUEUE_GROUP":       "events.nats.queue_group",
	"NATS_SUBSCRIBERS":       "events.nats.subscribers_count",
	"FEED_SIZE":              "feed.size",
	"FEED_NEW_CONTENT_BOOST": "feed.new_content_boost",
	"API_DEFAULT_PAGE_SIZE":  "api.default_page_size",
	"API_MAX_PAGE_SIZE":      "api.max_page_size",
	"API_RATE_LIMIT_REQS":    "api.rate_limit_reqs",
	"API_CORS_ORIGINS":       "api.cors_origins",
	"LOG_LEVEL":              "logging.level",
	"LOG_FORMAT":             "logging.format",
	"LOG_CALLER":             "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Returning an empty string drops the variable.
func envTransformFunc(key string) string {
	if path, ok := envMappings[key]; ok {
		return path
	}
	// CRESCENDO_SERVER__PORT style variables map positionally, with "__"
	// standing in for the "." path separator.
	if rest, ok := strings.CutPrefix(key, "CRESCENDO_"); ok {
		return strings.ReplaceAll(strings.ToLower(rest), "__", ".")
	}
	return ""
}

// sliceConfigPaths lists paths that arrive as comma-separated strings from
// the environment but unmarshal as slices.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}
