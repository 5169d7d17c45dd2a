// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sardinai/config.yaml",
	"/etc/sardinai/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3857,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Realtime: RealtimeConfig{
			HeartbeatInterval: 30 * time.Second,
			HeartbeatTimeout:  10 * time.Second,
			SendQueueDepth:    256,
			WriteWait:         10 * time.Second,
			MaxMessageSize:    512 * 1024,
			DrainTimeout:      5 * time.Second,
			StatsInterval:     15 * time.Second,
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
		},
		Feeds: FeedsConfig{
			LifecyclePolicy:       LifecycleOnDemand,
			Latitude:              32.5,
			Longitude:             -117.5,
			OceanographicInterval: 30 * time.Second,
			PredictionInterval:    60 * time.Second,
			VesselInterval:        10 * time.Second,
			AlertInterval:         60 * time.Second,
			Jitter:                0.1,
			OceanProvider:         OceanProviderSynthetic,
			VesselSource:          VesselSourceSynthetic,
			SyntheticVessels:      6,
			VesselStaleAfter:      15 * time.Minute,
		},
		NOAA: NOAAConfig{
			BaseURL:           "https://www.ncdc.noaa.gov/cdo-web/api/v2",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
			CacheTTL:          5 * time.Minute,
		},
		CICESE: CICESEConfig{
			BaseURL:           "https://www.cicese.edu.mx/api",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
			CacheTTL:          5 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   false,
			EmbeddedHost:     "127.0.0.1",
			EmbeddedPort:     4222,
			AISSubject:       "ais.positions",
			QueueGroup:       "sardinai-ais",
			SubscribersCount: 1,
		},
		Security: SecurityConfig{
			AuthMode:        AuthModeJWT,
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Audit: AuditConfig{
			Enabled:    true,
			Path:       "",
			Retention:  30 * 24 * time.Hour,
			BufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf layers defaults, the optional YAML file and environment
// variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Realtime hub
	"heartbeat_interval":   "realtime.heartbeat_interval",
	"heartbeat_timeout":    "realtime.heartbeat_timeout",
	"ws_send_queue_depth":  "realtime.send_queue_depth",
	"ws_write_wait":        "realtime.write_wait",
	"ws_max_message_size":  "realtime.max_message_size",
	"ws_drain_timeout":     "realtime.drain_timeout",
	"ws_stats_interval":    "realtime.stats_interval",
	"ws_read_buffer_size":  "realtime.read_buffer_size",
	"ws_write_buffer_size": "realtime.write_buffer_size",

	// Feeds
	"feed_lifecycle_policy":       "feeds.lifecycle_policy",
	"feed_latitude":               "feeds.latitude",
	"feed_longitude":              "feeds.longitude",
	"feed_oceanographic_interval": "feeds.oceanographic_interval",
	"feed_prediction_interval":    "feeds.prediction_interval",
	"feed_vessel_interval":        "feeds.vessel_interval",
	"feed_alert_interval":         "feeds.alert_interval",
	"feed_jitter":                 "feeds.jitter",
	"ocean_provider":              "feeds.ocean_provider",
	"vessel_source":               "feeds.vessel_source",
	"synthetic_vessels":           "feeds.synthetic_vessels",
	"vessel_stale_after":          "feeds.vessel_stale_after",

	// NOAA
	"noaa_base_url":            "noaa.base_url",
	"noaa_api_key":             "noaa.api_key",
	"noaa_timeout":             "noaa.timeout",
	"noaa_requests_per_second": "noaa.requests_per_second",
	"noaa_cache_ttl":           "noaa.cache_ttl",

	// CICESE
	"cicese_base_url":            "cicese.base_url",
	"cicese_api_key":             "cicese.api_key",
	"cicese_timeout":             "cicese.timeout",
	"cicese_requests_per_second": "cicese.requests_per_second",
	"cicese_cache_ttl":           "cicese.cache_ttl",

	// NATS / AIS
	"nats_enabled":       "nats.enabled",
	"nats_url":           "nats.url",
	"nats_embedded":      "nats.embedded_server",
	"nats_embedded_host": "nats.embedded_host",
	"nats_embedded_port": "nats.embedded_port",
	"nats_ais_subject":   "nats.ais_subject",
	"nats_queue_group":   "nats.queue_group",
	"nats_subscribers":   "nats.subscribers_count",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Audit sink
	"audit_enabled":     "audit.enabled",
	"audit_path":        "audit.path",
	"audit_retention":   "audit.retention",
	"audit_buffer_size": "audit.buffer_size",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc returns "" for unmapped variables so unrelated
// environment does not leak into the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
