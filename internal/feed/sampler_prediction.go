// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/prediction"
)

// PredictionSampler scores a grid of cells around the centre and reports
// the best ones as optimal zones.
type PredictionSampler struct {
	Latitude  float64
	Longitude float64
	Scorer    prediction.Scorer

	// GridStepKm is the spacing of the scored grid; GridRadius is the
	// number of steps from the centre in each direction.
	GridStepKm float64
	GridRadius int

	// MaxZones caps the optimal zones reported; MinZoneProbability is the
	// score a cell needs to qualify.
	MaxZones           int
	MinZoneProbability float64

	random func() float64
}

// NewPredictionSampler returns a sampler with a 5x5 grid at 10 km spacing.
func NewPredictionSampler(lat, lon float64, scorer prediction.Scorer) *PredictionSampler {
	if scorer == nil {
		scorer = prediction.SardineScorer{}
	}
	return &PredictionSampler{
		Latitude:           lat,
		Longitude:          lon,
		Scorer:             scorer,
		GridStepKm:         10,
		GridRadius:         2,
		MaxZones:           3,
		MinZoneProbability: 0.6,
		random:             rand.Float64,
	}
}

type scoredCell struct {
	lat, lon, p float64
}

// Sample implements Source.
func (s *PredictionSampler) Sample(_ context.Context, now time.Time) (models.Payload, *models.Location, error) {
	centre := s.score(s.Latitude, s.Longitude, now)

	var cells []scoredCell
	for i := -s.GridRadius; i <= s.GridRadius; i++ {
		for j := -s.GridRadius; j <= s.GridRadius; j++ {
			lat, _ := prediction.Destination(s.Latitude, s.Longitude, 0, float64(i)*s.GridStepKm)
			lat, lon := prediction.Destination(lat, s.Longitude, 90, float64(j)*s.GridStepKm)
			if p := s.score(lat, lon, now); p >= s.MinZoneProbability {
				cells = append(cells, scoredCell{lat: lat, lon: lon, p: p})
			}
		}
	}
	sort.SliceStable(cells, func(a, b int) bool { return cells[a].p > cells[b].p })
	if len(cells) > s.MaxZones {
		cells = cells[:s.MaxZones]
	}

	zones := make([]models.OptimalZone, 0, len(cells))
	for _, c := range cells {
		zones = append(zones, models.OptimalZone{
			Latitude:    round(c.lat, 4),
			Longitude:   round(c.lon, 4),
			Radius:      s.GridStepKm / 2,
			Probability: round(c.p, 2),
		})
	}

	spread := (2*s.random() - 1) * 0.1
	data := &models.PredictionData{
		SardineProbability: round(centre, 2),
		Confidence:         round(prediction.Confidence(centre, spread), 2),
		OptimalZones:       zones,
		MigrationPattern:   migrationFor(now),
	}
	return data, &models.Location{Latitude: s.Latitude, Longitude: s.Longitude}, nil
}

func (s *PredictionSampler) score(lat, lon float64, now time.Time) float64 {
	o := OceanConditions(lat, lon, now)
	return s.Scorer.Score(prediction.Features{
		SeaSurfaceTemp: o.SeaSurfaceTemp,
		Chlorophyll:    o.Chlorophyll,
		Salinity:       o.Salinity,
		CurrentSpeed:   o.CurrentSpeed,
	}.FeaturesAt(now))
}

// migrationFor is the seasonal movement of the California Current stock:
// north through spring, south through autumn, holding otherwise.
func migrationFor(t time.Time) models.MigrationPattern {
	switch t.UTC().Month() {
	case time.March, time.April, time.May, time.June:
		return models.MigrationPattern{Direction: "north", Speed: 2.5, Confidence: 0.7}
	case time.September, time.October, time.November:
		return models.MigrationPattern{Direction: "south", Speed: 2.0, Confidence: 0.65}
	default:
		return models.MigrationPattern{Direction: "stationary", Speed: 0.5, Confidence: 0.5}
	}
}
