// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package config loads SARDIN-AI configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
//
// Example config.yaml:
//
//	server:
//	  port: 3857
//	realtime:
//	  heartbeat_interval: 30s
//	  heartbeat_timeout: 10s
//	  send_queue_depth: 256
//	feeds:
//	  lifecycle_policy: on_demand
//	  latitude: 32.5
//	  longitude: -117.5
//	security:
//	  auth_mode: jwt
//	  cors_origins: ["https://app.sardinai.example"]
//
// Every key can be overridden by a mapped environment variable, for example
// HEARTBEAT_INTERVAL=15s or CORS_ORIGINS=https://a.example,https://b.example.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Realtime   RealtimeConfig   `koanf:"realtime"`
	Feeds      FeedsConfig      `koanf:"feeds"`
	NOAA       NOAAConfig       `koanf:"noaa"`
	CICESE     CICESEConfig     `koanf:"cicese"`
	NATS       NATSConfig       `koanf:"nats"`
	Security   SecurityConfig   `koanf:"security"`
	Audit      AuditConfig      `koanf:"audit"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// RealtimeConfig tunes the broadcast hub and its connections.
//
// Environment Variables:
//   - HEARTBEAT_INTERVAL: time between server pings on an idle connection (default: 30s)
//   - HEARTBEAT_TIMEOUT: time to wait for the pong before closing (default: 10s)
//   - WS_SEND_QUEUE_DEPTH: per-connection outbound buffer; a full buffer disconnects the client (default: 256)
//   - WS_WRITE_WAIT: deadline for a single frame write (default: 10s)
//   - WS_MAX_MESSAGE_SIZE: largest inbound frame accepted (default: 512KB)
//   - WS_DRAIN_TIMEOUT: how long a graceful close waits for queued frames (default: 5s)
type RealtimeConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `koanf:"heartbeat_timeout"`
	SendQueueDepth    int           `koanf:"send_queue_depth"`
	WriteWait         time.Duration `koanf:"write_wait"`
	MaxMessageSize    int64         `koanf:"max_message_size"`
	DrainTimeout      time.Duration `koanf:"drain_timeout"`
	StatsInterval     time.Duration `koanf:"stats_interval"`
	ReadBufferSize    int           `koanf:"read_buffer_size"`
	WriteBufferSize   int           `koanf:"write_buffer_size"`
}

// Lifecycle policies for feed adapters.
const (
	LifecycleOnDemand = "on_demand"
	LifecycleAlways   = "always"
)

// Vessel sources.
const (
	VesselSourceSynthetic = "synthetic"
	VesselSourceAIS       = "ais"
)

// Oceanographic providers.
const (
	OceanProviderSynthetic = "synthetic"
	OceanProviderNOAA      = "noaa"
	OceanProviderCICESE    = "cicese"
)

// FeedsConfig configures the periodic producers.
type FeedsConfig struct {
	// LifecyclePolicy is on_demand (adapters run only while their topic has
	// subscribers) or always.
	LifecyclePolicy string `koanf:"lifecycle_policy"`

	// Latitude/Longitude is the centre of the monitored area.
	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`

	OceanographicInterval time.Duration `koanf:"oceanographic_interval"`
	PredictionInterval    time.Duration `koanf:"prediction_interval"`
	VesselInterval        time.Duration `koanf:"vessel_interval"`
	AlertInterval         time.Duration `koanf:"alert_interval"`

	// OceanProvider picks the oceanographic upstream: synthetic, noaa or
	// cicese. Upstream providers fall back to their regional model.
	OceanProvider string `koanf:"ocean_provider"`

	// Jitter is the fraction of the interval added or removed at random on
	// every tick (0 disables jitter).
	Jitter float64 `koanf:"jitter"`

	VesselSource     string        `koanf:"vessel_source"`
	SyntheticVessels int           `koanf:"synthetic_vessels"`
	VesselStaleAfter time.Duration `koanf:"vessel_stale_after"`
}

// NOAAConfig configures the NOAA observations API, used when
// feeds.ocean_provider is noaa.
type NOAAConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
}

// CICESEConfig configures the CICESE ocean-data API for the Ensenada
// region, used when feeds.ocean_provider is cicese.
type CICESEConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
}

// NATSConfig configures AIS ingestion.
type NATSConfig struct {
	Enabled          bool   `koanf:"enabled"`
	URL              string `koanf:"url"`
	EmbeddedServer   bool   `koanf:"embedded_server"`
	EmbeddedHost     string `koanf:"embedded_host"`
	EmbeddedPort     int    `koanf:"embedded_port"`
	AISSubject       string `koanf:"ais_subject"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`
}

// Auth modes.
const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// AuditConfig configures the persistence sink. An empty Path keeps audit
// events in memory.
type AuditConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	Retention  time.Duration `koanf:"retention"`
	BufferSize int           `koanf:"buffer_size"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig mirrors suture's restart policy knobs.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, the config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// AuthEnabled reports whether WebSocket and REST callers must present a token.
func (c *Config) AuthEnabled() bool {
	return c.Security.AuthMode != AuthModeNone
}
