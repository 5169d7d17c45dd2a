// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sardinai/internal/cache"
	"github.com/tomtom215/sardinai/internal/models"
)

const ciceseBreakerName = "cicese-api"

// Ensenada reference point for the CICESE regional model.
const (
	ensenadaLatitude  = 31.8667
	ensenadaLongitude = -116.6167
)

// CICESERegionalSampler models sea state off Ensenada, B.C. the way the
// CICESE coastal stations report it: a diurnal and a seasonal term on top of
// regional means, with small station noise. It is the CICESE fallback.
type CICESERegionalSampler struct {
	Latitude  float64
	Longitude float64
	random    func() float64
}

// NewCICESERegionalSampler returns a sampler centred on lat, lon.
func NewCICESERegionalSampler(lat, lon float64) *CICESERegionalSampler {
	return &CICESERegionalSampler{Latitude: lat, Longitude: lon, random: rand.Float64}
}

// Sample implements Source.
func (s *CICESERegionalSampler) Sample(_ context.Context, now time.Time) (models.Payload, *models.Location, error) {
	data := CICESEConditions(s.Latitude, s.Longitude, now, s.random)
	loc := &models.Location{Latitude: s.Latitude, Longitude: s.Longitude}
	data.Location = loc
	return &data, loc, nil
}

// CICESEConditions models the regional sea state at lat, lon at time t.
// random returns values in [0, 1); a constant 0.5 removes the noise.
func CICESEConditions(lat, lon float64, t time.Time, random func() float64) models.OceanographicData {
	t = t.UTC()
	noise := func(amplitude float64) float64 { return (2*random() - 1) * amplitude }

	hourFactor := math.Sin(2 * math.Pi * float64(t.Hour()) / 24)
	seasonal := math.Sin(2 * math.Pi * float64(t.YearDay()) / 365)

	temp := 18.5 + (lat-ensenadaLatitude)*0.3 + hourFactor*2 + seasonal*3
	chl := 0.85 + (lon-ensenadaLongitude)*0.2*0.1 + seasonal*0.3
	wind := math.Max(8+noise(3), 0)

	return models.OceanographicData{
		SeaSurfaceTemp:   round(temp, 1),
		Chlorophyll:      round(math.Max(chl, 0), 2),
		Salinity:         round(34.2+noise(0.3), 2),
		CurrentSpeed:     round(math.Max(0.6+hourFactor*0.4+noise(0.1), 0), 1),
		CurrentDirection: math.Mod(math.Round(float64(t.Hour()*15)+noise(30))+360, 360),
		WaveHeight:       round(1.5+noise(0.5), 1),
		WavePeriod:       round(8+noise(2), 1),
		WindSpeed:        round(wind, 1),
		WindDirection:    math.Mod(math.Round(270+noise(30))+360, 360),
	}
}

// CICESEConfig configures CICESESource.
type CICESEConfig struct {
	BaseURL           string
	APIKey            string
	Latitude          float64
	Longitude         float64
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// CICESESource reads station data from the CICESE ocean-data endpoint,
// with the same cache, limiter and breaker as NOAASource.
type CICESESource struct {
	cfg CICESEConfig
	up  *upstream
}

// NewCICESESource builds the source. fallback must not be nil.
func NewCICESESource(cfg CICESEConfig, fallback Source) *CICESESource {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	s := &CICESESource{cfg: cfg}
	s.up = newUpstream(upstreamSettings{
		name:              "cicese",
		breaker:           ciceseBreakerName,
		timeout:           cfg.Timeout,
		requestsPerSecond: cfg.RequestsPerSecond,
		cacheTTL:          cfg.CacheTTL,
		cacheKey:          cache.GenerateKey("cicese:ocean-data", [2]float64{cfg.Latitude, cfg.Longitude}),
	}, fallback, s.newRequest)
	return s
}

// State returns the circuit breaker state.
func (s *CICESESource) State() gobreaker.State { return s.up.cb.State() }

// Sample implements Source.
func (s *CICESESource) Sample(ctx context.Context, now time.Time) (models.Payload, *models.Location, error) {
	return s.up.sample(ctx, now)
}

func (s *CICESESource) newRequest(ctx context.Context) (*http.Request, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(s.cfg.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(s.cfg.Longitude, 'f', 4, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/ocean-data?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}
	return req, nil
}
