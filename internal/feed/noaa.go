// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sardinai/internal/cache"
	"github.com/tomtom215/sardinai/internal/models"
)

const noaaBreakerName = "noaa-api"

// NOAAConfig configures NOAASource.
type NOAAConfig struct {
	BaseURL           string
	APIKey            string
	Latitude          float64
	Longitude         float64
	Timeout           time.Duration
	RequestsPerSecond float64

	// CacheTTL keeps a successful observation for reuse; zero disables it.
	CacheTTL time.Duration
}

// NOAASource reads sea state from the NOAA observations endpoint. Calls go
// through a rate limiter and a circuit breaker; when either refuses, or the
// call fails, the sample comes from the fallback source instead so the
// oceanographic topic keeps flowing.
type NOAASource struct {
	cfg NOAAConfig
	up  *upstream
}

// NewNOAASource builds the source. fallback must not be nil.
func NewNOAASource(cfg NOAAConfig, fallback Source) *NOAASource {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	s := &NOAASource{cfg: cfg}
	s.up = newUpstream(upstreamSettings{
		name:              "noaa",
		breaker:           noaaBreakerName,
		timeout:           cfg.Timeout,
		requestsPerSecond: cfg.RequestsPerSecond,
		cacheTTL:          cfg.CacheTTL,
		cacheKey:          cache.GenerateKey("noaa:observations", [2]float64{cfg.Latitude, cfg.Longitude}),
	}, fallback, s.newRequest)
	return s
}

// State returns the circuit breaker state.
func (s *NOAASource) State() gobreaker.State { return s.up.cb.State() }

// Sample implements Source.
func (s *NOAASource) Sample(ctx context.Context, now time.Time) (models.Payload, *models.Location, error) {
	return s.up.sample(ctx, now)
}

func (s *NOAASource) newRequest(ctx context.Context) (*http.Request, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(s.cfg.Latitude, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(s.cfg.Longitude, 'f', 4, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/observations?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("token", s.cfg.APIKey)
	}
	return req, nil
}
