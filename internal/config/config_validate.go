// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks that the configuration is usable. Messages name the
// environment variable that sets the offending value.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateRealtime,
		c.validateFeeds,
		c.validateNOAA,
		c.validateCICESE,
		c.validateNATS,
		c.validateSecurity,
		c.validateAudit,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

const (
	minHeartbeatInterval = time.Second
	maxHeartbeatInterval = 10 * time.Minute
	maxSendQueueDepth    = 65536
)

func (c *Config) validateRealtime() error {
	r := c.Realtime
	if r.HeartbeatInterval < minHeartbeatInterval || r.HeartbeatInterval > maxHeartbeatInterval {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be between %v and %v", minHeartbeatInterval, maxHeartbeatInterval)
	}
	if r.HeartbeatTimeout <= 0 || r.HeartbeatTimeout > r.HeartbeatInterval*2 {
		return fmt.Errorf("HEARTBEAT_TIMEOUT must be positive and at most twice HEARTBEAT_INTERVAL")
	}
	if r.SendQueueDepth < 1 || r.SendQueueDepth > maxSendQueueDepth {
		return fmt.Errorf("WS_SEND_QUEUE_DEPTH must be between 1 and %d", maxSendQueueDepth)
	}
	if r.WriteWait <= 0 {
		return fmt.Errorf("WS_WRITE_WAIT must be positive")
	}
	if r.MaxMessageSize < 512 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be at least 512 bytes")
	}
	if r.DrainTimeout < 0 {
		return fmt.Errorf("WS_DRAIN_TIMEOUT must not be negative")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	f := c.Feeds
	if f.LifecyclePolicy != LifecycleOnDemand && f.LifecyclePolicy != LifecycleAlways {
		return fmt.Errorf("FEED_LIFECYCLE_POLICY must be %q or %q", LifecycleOnDemand, LifecycleAlways)
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("FEED_LATITUDE must be between -90 and 90")
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("FEED_LONGITUDE must be between -180 and 180")
	}
	intervals := map[string]time.Duration{
		"FEED_OCEANOGRAPHIC_INTERVAL": f.OceanographicInterval,
		"FEED_PREDICTION_INTERVAL":    f.PredictionInterval,
		"FEED_VESSEL_INTERVAL":        f.VesselInterval,
		"FEED_ALERT_INTERVAL":         f.AlertInterval,
	}
	for name, d := range intervals {
		if d < 100*time.Millisecond {
			return fmt.Errorf("%s must be at least 100ms", name)
		}
	}
	if f.Jitter < 0 || f.Jitter >= 1 {
		return fmt.Errorf("FEED_JITTER must be in [0, 1)")
	}
	switch f.OceanProvider {
	case OceanProviderSynthetic, OceanProviderNOAA, OceanProviderCICESE:
	default:
		return fmt.Errorf("OCEAN_PROVIDER must be one of: %s, %s, %s",
			OceanProviderSynthetic, OceanProviderNOAA, OceanProviderCICESE)
	}
	switch f.VesselSource {
	case VesselSourceSynthetic:
		if f.SyntheticVessels < 1 || f.SyntheticVessels > 500 {
			return fmt.Errorf("SYNTHETIC_VESSELS must be between 1 and 500")
		}
	case VesselSourceAIS:
		if !c.NATS.Enabled {
			return fmt.Errorf("VESSEL_SOURCE=ais requires NATS_ENABLED=true")
		}
	default:
		return fmt.Errorf("VESSEL_SOURCE must be %q or %q", VesselSourceSynthetic, VesselSourceAIS)
	}
	return nil
}

func (c *Config) validateNOAA() error {
	if c.Feeds.OceanProvider != OceanProviderNOAA {
		return nil
	}
	if err := validateHTTPURL(c.NOAA.BaseURL); err != nil {
		return fmt.Errorf("NOAA_BASE_URL is invalid: %w", err)
	}
	if c.NOAA.Timeout <= 0 {
		return fmt.Errorf("NOAA_TIMEOUT must be positive")
	}
	if c.NOAA.RequestsPerSecond <= 0 {
		return fmt.Errorf("NOAA_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateCICESE() error {
	if c.Feeds.OceanProvider != OceanProviderCICESE {
		return nil
	}
	if err := validateHTTPURL(c.CICESE.BaseURL); err != nil {
		return fmt.Errorf("CICESE_BASE_URL is invalid: %w", err)
	}
	if c.CICESE.Timeout <= 0 {
		return fmt.Errorf("CICESE_TIMEOUT must be positive")
	}
	if c.CICESE.RequestsPerSecond <= 0 {
		return fmt.Errorf("CICESE_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.AISSubject == "" {
		return fmt.Errorf("NATS_AIS_SUBJECT is required when NATS_ENABLED=true")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > 32 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	if c.NATS.EmbeddedServer && (c.NATS.EmbeddedPort < 1 || c.NATS.EmbeddedPort > 65535) {
		return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535")
	}
	return nil
}

const (
	minJWTSecretLength    = 32
	minAdminPasswordLen   = 8
	minRateLimitRequests  = 1
	maxRateLimitRequests  = 100000
	minRateLimitWindow    = time.Second
	maxRateLimitWindow    = time.Hour
	maxSessionTimeoutDays = 30
)

func (c *Config) validateSecurity() error {
	s := c.Security
	switch s.AuthMode {
	case AuthModeNone:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
		}
	case AuthModeJWT:
		if len(s.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
		if s.SessionTimeout <= 0 || s.SessionTimeout > maxSessionTimeoutDays*24*time.Hour {
			return fmt.Errorf("SESSION_TIMEOUT must be positive and at most %d days", maxSessionTimeoutDays)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}

	if (s.AdminUsername == "") != (s.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if s.AdminPassword != "" && len(s.AdminPassword) < minAdminPasswordLen {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters", minAdminPasswordLen)
	}

	if !s.RateLimitDisabled {
		if s.RateLimitReqs < minRateLimitRequests || s.RateLimitReqs > maxRateLimitRequests {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
		}
		if s.RateLimitWindow < minRateLimitWindow || s.RateLimitWindow > maxRateLimitWindow {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
		}
	}

	if c.IsProduction() && c.AuthEnabled() && c.HasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production with authentication enabled; list the allowed origins explicitly")
	}
	return nil
}

// HasWildcardCORS reports whether any allowed origin is "*".
func (c *Config) HasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	if c.Audit.Path != "" && c.Audit.Retention < time.Hour {
		return fmt.Errorf("AUDIT_RETENTION must be at least 1h")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateNATSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}
