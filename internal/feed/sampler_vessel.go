// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/prediction"
)

// Vessel statuses.
const (
	VesselStatusFishing  = "fishing"
	VesselStatusUnderway = "underway"
	VesselStatusAnchored = "anchored"
)

var fleetNames = []string{
	"Sardina I", "Pacific Star", "Ensenada Dawn", "Coronado", "Mar de Cortés",
	"Punta Banda", "Todos Santos", "Bahía Azul", "Cedros", "San Quintín",
}

// VesselSampler moves a synthetic fleet around the monitored area. Each
// sample advances every vessel along its heading for the time elapsed since
// the previous sample.
type VesselSampler struct {
	centreLat, centreLon float64
	maxRangeKm           float64
	random               func() float64

	mu    sync.Mutex
	fleet []models.Vessel
	last  time.Time
}

// NewVesselSampler creates n vessels scattered within 30 km of the centre.
func NewVesselSampler(lat, lon float64, n int) *VesselSampler {
	return newVesselSampler(lat, lon, n, rand.Float64)
}

func newVesselSampler(lat, lon float64, n int, random func() float64) *VesselSampler {
	s := &VesselSampler{centreLat: lat, centreLon: lon, maxRangeKm: 60, random: random}
	for i := 0; i < n; i++ {
		vlat, vlon := prediction.Destination(lat, lon, random()*360, random()*30)
		v := models.Vessel{
			ID:        fmt.Sprintf("36700%04d", 1200+i),
			Name:      fleetNames[i%len(fleetNames)],
			Type:      "fishing",
			Latitude:  vlat,
			Longitude: vlon,
			Heading:   math.Floor(random() * 360),
			Speed:     round(random()*10, 1),
		}
		if i%len(fleetNames) != i {
			v.Name = fmt.Sprintf("%s %d", v.Name, i/len(fleetNames)+1)
		}
		v.Status = statusForSpeed(v.Speed)
		s.fleet = append(s.fleet, v)
	}
	return s
}

// Sample implements Source.
func (s *VesselSampler) Sample(_ context.Context, now time.Time) (models.Payload, *models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.fleet) == 0 {
		return nil, nil, ErrNoSample
	}
	if !s.last.IsZero() {
		s.advance(now.Sub(s.last))
	}
	s.last = now

	vessels := make([]models.Vessel, len(s.fleet))
	copy(vessels, s.fleet)
	for i := range vessels {
		vessels[i].Latitude = round(vessels[i].Latitude, 5)
		vessels[i].Longitude = round(vessels[i].Longitude, 5)
	}
	return &models.VesselData{Vessels: vessels}, &models.Location{Latitude: s.centreLat, Longitude: s.centreLon}, nil
}

func (s *VesselSampler) advance(elapsed time.Duration) {
	for i := range s.fleet {
		v := &s.fleet[i]
		dist := prediction.KnotsToKmh(v.Speed) * elapsed.Hours()
		v.Latitude, v.Longitude = prediction.Destination(v.Latitude, v.Longitude, v.Heading, dist)

		// Turn back towards the centre when straying too far.
		if prediction.HaversineKm(s.centreLat, s.centreLon, v.Latitude, v.Longitude) > s.maxRangeKm {
			v.Heading = math.Mod(v.Heading+180, 360)
		} else {
			v.Heading = math.Mod(v.Heading+(s.random()*10-5)+360, 360)
		}
		v.Speed = round(math.Max(0, math.Min(12, v.Speed+(s.random()*2-1))), 1)
		v.Status = statusForSpeed(v.Speed)
	}
}

func statusForSpeed(knots float64) string {
	switch {
	case knots < 0.5:
		return VesselStatusAnchored
	case knots <= 4:
		return VesselStatusFishing
	default:
		return VesselStatusUnderway
	}
}
