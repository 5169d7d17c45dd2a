// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sardinai/internal/cache"
	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/metrics"
	"github.com/tomtom215/sardinai/internal/models"
)

// observation is the sea-state subset the upstream APIs return. Any field
// the upstream omits is taken from the fallback sample.
type observation struct {
	Temperature      *float64 `json:"temperature"`
	Chlorophyll      *float64 `json:"chlorophyll"`
	Salinity         *float64 `json:"salinity"`
	CurrentSpeed     *float64 `json:"current_speed"`
	CurrentDirection *float64 `json:"current_direction"`
	WaveHeight       *float64 `json:"wave_height"`
	WavePeriod       *float64 `json:"wave_period"`
	WindSpeed        *float64 `json:"wind_speed"`
	WindDirection    *float64 `json:"wind_direction"`
}

// merge overlays the observed fields on a copy of base.
func (o *observation) merge(base *models.OceanographicData) *models.OceanographicData {
	out := *base
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.SeaSurfaceTemp, o.Temperature)
	set(&out.Chlorophyll, o.Chlorophyll)
	set(&out.Salinity, o.Salinity)
	set(&out.CurrentSpeed, o.CurrentSpeed)
	set(&out.CurrentDirection, o.CurrentDirection)
	set(&out.WaveHeight, o.WaveHeight)
	set(&out.WavePeriod, o.WavePeriod)
	set(&out.WindSpeed, o.WindSpeed)
	set(&out.WindDirection, o.WindDirection)
	return &out
}

// upstreamSettings configures an upstream poller.
type upstreamSettings struct {
	name              string // metrics label, e.g. "noaa"
	breaker           string
	timeout           time.Duration
	requestsPerSecond float64
	cacheTTL          time.Duration
	cacheKey          string
}

// upstream polls one oceanographic HTTP API. Calls go through the cache, a
// rate limiter and a circuit breaker; when any of them refuses, or the call
// fails, the sample comes from the fallback source.
type upstream struct {
	name     string
	breaker  string
	client   *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[*observation]
	cache    *cache.Cache[*observation]
	cacheKey string
	fallback Source
	request  func(ctx context.Context) (*http.Request, error)
}

func newUpstream(s upstreamSettings, fallback Source, request func(ctx context.Context) (*http.Request, error)) *upstream {
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}
	if s.requestsPerSecond <= 0 {
		s.requestsPerSecond = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(s.breaker).Set(0)

	u := &upstream{
		name:     s.name,
		breaker:  s.breaker,
		client:   &http.Client{Timeout: s.timeout},
		limiter:  rate.NewLimiter(rate.Limit(s.requestsPerSecond), 1),
		cb:       newUpstreamBreaker(s.breaker),
		fallback: fallback,
		request:  request,
	}
	if s.cacheTTL > 0 {
		u.cache = cache.New[*observation](s.cacheTTL)
		u.cacheKey = s.cacheKey
	}
	return u
}

// newUpstreamBreaker opens after 60% failures over at least 10 requests in
// a one minute window and tries again after two minutes.
func newUpstreamBreaker(name string) *gobreaker.CircuitBreaker[*observation] {
	return gobreaker.NewCircuitBreaker[*observation](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (u *upstream) sample(ctx context.Context, now time.Time) (models.Payload, *models.Location, error) {
	fbPayload, loc, err := u.fallback.Sample(ctx, now)
	if err != nil {
		return nil, nil, err
	}
	base, ok := fbPayload.(*models.OceanographicData)
	if !ok {
		return nil, nil, fmt.Errorf("%s fallback returned %T", u.name, fbPayload)
	}

	if u.cache != nil {
		if obs, ok := u.cache.Get(u.cacheKey); ok {
			metrics.CircuitBreakerRequests.WithLabelValues(u.breaker, "cached").Inc()
			return obs.merge(base), loc, nil
		}
	}

	if !u.limiter.Allow() {
		metrics.CircuitBreakerRequests.WithLabelValues(u.breaker, "rate_limited").Inc()
		return base, loc, nil
	}

	obs, err := u.cb.Execute(func() (*observation, error) {
		return u.fetch(ctx)
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		metrics.CircuitBreakerRequests.WithLabelValues(u.breaker, result).Inc()
		logging.Debug().Err(err).Str("upstream", u.name).Str("result", result).Msg("Upstream unavailable, using fallback sea state")
		return base, loc, nil
	}

	metrics.CircuitBreakerRequests.WithLabelValues(u.breaker, "success").Inc()
	if u.cache != nil {
		u.cache.Set(u.cacheKey, obs)
	}
	return obs.merge(base), loc, nil
}

func (u *upstream) fetch(ctx context.Context) (*observation, error) {
	start := time.Now()
	defer func() {
		metrics.FeedUpstreamDuration.WithLabelValues(u.name).Observe(time.Since(start).Seconds())
	}()

	req, err := u.request(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s returned HTTP %d", u.name, resp.StatusCode)
	}

	var obs observation
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&obs); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", u.name, err)
	}
	return &obs, nil
}
