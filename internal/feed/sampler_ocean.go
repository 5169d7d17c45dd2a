// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/prediction"
)

// OceanSampler produces synthetic sea state for a fixed point. It is the
// default oceanographic source and the NOAA fallback.
type OceanSampler struct {
	Latitude  float64
	Longitude float64
}

// NewOceanSampler returns a sampler centred on lat, lon.
func NewOceanSampler(lat, lon float64) *OceanSampler {
	return &OceanSampler{Latitude: lat, Longitude: lon}
}

// Sample implements Source.
func (s *OceanSampler) Sample(_ context.Context, now time.Time) (models.Payload, *models.Location, error) {
	data := OceanConditions(s.Latitude, s.Longitude, now)
	loc := &models.Location{Latitude: s.Latitude, Longitude: s.Longitude}
	data.Location = loc
	return &data, loc, nil
}

// OceanConditions models the sea state at lat, lon at time t. Temperature
// follows latitude and chlorophyll longitude, both shifted up by day and
// down by night; currents and wind cycle with the UTC hour.
func OceanConditions(lat, lon float64, t time.Time) models.OceanographicData {
	hour := t.UTC().Hour()

	temp := 18.5 + (lat-32)*0.5
	chl := 0.8 + (lon+117)*0.1
	if prediction.IsDaytime(hour) {
		temp += 2.0
		chl += 0.2
	} else {
		temp -= 1.5
		chl -= 0.1
	}

	wind := 5 + float64(hour%8)*0.5
	return models.OceanographicData{
		SeaSurfaceTemp:   round(temp, 2),
		Chlorophyll:      round(math.Max(chl, 0), 3),
		Salinity:         34.2,
		CurrentSpeed:     round(0.5+float64(hour%6)*0.1, 2),
		CurrentDirection: float64((hour * 15) % 360),
		WaveHeight:       round(0.3+wind*0.12, 2),
		WavePeriod:       round(4+wind*0.3, 1),
		WindSpeed:        wind,
		WindDirection:    float64((hour * 30) % 360),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
