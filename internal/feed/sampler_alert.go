// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/prediction"
)

// Alert types raised by AlertSampler.
const (
	AlertWeatherWarning     = "weather_warning"
	AlertTemperatureAnomaly = "temperature_anomaly"
	AlertFishingOpportunity = "fishing_opportunity"
)

// AlertSampler derives at most one alert per tick from the current
// conditions at the centre, most severe first. A condition that was already
// reported is not repeated until it clears.
type AlertSampler struct {
	Latitude  float64
	Longitude float64
	Scorer    prediction.Scorer

	WindLimit         float64 // m/s
	TempLow, TempHigh float64 // °C
	OpportunityLimit  float64 // sardine probability
	Expiry            time.Duration

	active map[string]bool
}

// NewAlertSampler returns a sampler with the default thresholds.
func NewAlertSampler(lat, lon float64, scorer prediction.Scorer) *AlertSampler {
	if scorer == nil {
		scorer = prediction.SardineScorer{}
	}
	return &AlertSampler{
		Latitude:         lat,
		Longitude:        lon,
		Scorer:           scorer,
		WindLimit:        8,
		TempLow:          14,
		TempHigh:         22,
		OpportunityLimit: 0.85,
		Expiry:           2 * time.Hour,
		active:           make(map[string]bool),
	}
}

// Sample implements Source. It is called from a single adapter goroutine.
func (s *AlertSampler) Sample(_ context.Context, now time.Time) (models.Payload, *models.Location, error) {
	o := OceanConditions(s.Latitude, s.Longitude, now)
	p := s.Scorer.Score(prediction.Features{
		SeaSurfaceTemp: o.SeaSurfaceTemp,
		Chlorophyll:    o.Chlorophyll,
		Salinity:       o.Salinity,
		CurrentSpeed:   o.CurrentSpeed,
	}.FeaturesAt(now))

	loc := &models.Location{Latitude: s.Latitude, Longitude: s.Longitude}
	expires := now.UTC().Add(s.Expiry)

	candidates := []struct {
		raised bool
		alert  models.AlertData
	}{
		{
			raised: o.WindSpeed > s.WindLimit,
			alert: models.AlertData{
				Type:           AlertWeatherWarning,
				Severity:       models.SeverityHigh,
				Message:        fmt.Sprintf("Wind %.1f m/s from %.0f°, small craft should return to port", o.WindSpeed, o.WindDirection),
				ActionRequired: true,
			},
		},
		{
			raised: o.SeaSurfaceTemp < s.TempLow || o.SeaSurfaceTemp > s.TempHigh,
			alert: models.AlertData{
				Type:     AlertTemperatureAnomaly,
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("Sea surface temperature %.1f °C outside the %.0f-%.0f °C range", o.SeaSurfaceTemp, s.TempLow, s.TempHigh),
			},
		},
		{
			raised: p >= s.OpportunityLimit,
			alert: models.AlertData{
				Type:     AlertFishingOpportunity,
				Severity: models.SeverityLow,
				Message:  fmt.Sprintf("Sardine probability %.0f%% near %.2f, %.2f", p*100, s.Latitude, s.Longitude),
			},
		},
	}

	var out *models.AlertData
	for _, c := range candidates {
		if !c.raised {
			delete(s.active, c.alert.Type)
			continue
		}
		if s.active[c.alert.Type] || out != nil {
			continue
		}
		s.active[c.alert.Type] = true
		a := c.alert
		a.Location = loc
		a.ExpiresAt = &expires
		out = &a
	}
	if out == nil {
		return nil, nil, ErrNoSample
	}
	return out, loc, nil
}
