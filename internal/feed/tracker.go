// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/prediction"
)

const kmPerDegree = 111.0

type cellKey struct {
	x, y int
}

type trackedVessel struct {
	vessel models.Vessel
	seen   time.Time
	cell   cellKey
}

// VesselTracker keeps the latest position of every vessel, bucketed in a
// lat/lon grid so proximity queries only visit nearby cells.
type VesselTracker struct {
	mu      sync.RWMutex
	cellDeg float64
	vessels map[string]*trackedVessel
	cells   map[cellKey]map[string]struct{}
}

// NewVesselTracker returns an empty tracker with cells of roughly
// cellSizeKm on a side (default 25 km).
func NewVesselTracker(cellSizeKm float64) *VesselTracker {
	if cellSizeKm <= 0 {
		cellSizeKm = 25
	}
	return &VesselTracker{
		cellDeg: cellSizeKm / kmPerDegree,
		vessels: make(map[string]*trackedVessel),
		cells:   make(map[cellKey]map[string]struct{}),
	}
}

func (t *VesselTracker) keyFor(lat, lon float64) cellKey {
	return cellKey{
		x: int(math.Floor(lon / t.cellDeg)),
		y: int(math.Floor(lat / t.cellDeg)),
	}
}

// Upsert records v as seen at seen. A report older than the one already
// held for the same vessel is ignored; the return value says whether the
// tracker changed.
func (t *VesselTracker) Upsert(v models.Vessel, seen time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.vessels[v.ID]; ok {
		if seen.Before(cur.seen) {
			return false
		}
		t.unlinkLocked(v.ID, cur.cell)
	}
	key := t.keyFor(v.Latitude, v.Longitude)
	t.vessels[v.ID] = &trackedVessel{vessel: v, seen: seen, cell: key}
	ids := t.cells[key]
	if ids == nil {
		ids = make(map[string]struct{})
		t.cells[key] = ids
	}
	ids[v.ID] = struct{}{}
	return true
}

func (t *VesselTracker) unlinkLocked(id string, key cellKey) {
	ids := t.cells[key]
	delete(ids, id)
	if len(ids) == 0 {
		delete(t.cells, key)
	}
}

// PruneBefore drops vessels last seen before cutoff and returns how many
// were removed.
func (t *VesselTracker) PruneBefore(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, tv := range t.vessels {
		if tv.seen.Before(cutoff) {
			t.unlinkLocked(id, tv.cell)
			delete(t.vessels, id)
			removed++
		}
	}
	return removed
}

// Snapshot returns every tracked vessel ordered by ID.
func (t *VesselTracker) Snapshot() []models.Vessel {
	t.mu.RLock()
	out := make([]models.Vessel, 0, len(t.vessels))
	for _, tv := range t.vessels {
		out = append(out, tv.vessel)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Nearby returns the vessels within radiusKm of lat, lon, nearest first.
func (t *VesselTracker) Nearby(lat, lon, radiusKm float64) []models.Vessel {
	type hit struct {
		v    models.Vessel
		dist float64
	}

	// Longitude cells shrink with latitude; widen the x span to match.
	spanY := int(math.Ceil(radiusKm/kmPerDegree/t.cellDeg)) + 1
	cosLat := math.Max(math.Cos(lat*math.Pi/180), 0.01)
	spanX := int(math.Ceil(radiusKm/(kmPerDegree*cosLat)/t.cellDeg)) + 1
	centre := t.keyFor(lat, lon)

	var hits []hit
	t.mu.RLock()
	for dx := -spanX; dx <= spanX; dx++ {
		for dy := -spanY; dy <= spanY; dy++ {
			for id := range t.cells[cellKey{x: centre.x + dx, y: centre.y + dy}] {
				v := t.vessels[id].vessel
				if d := prediction.HaversineKm(lat, lon, v.Latitude, v.Longitude); d <= radiusKm {
					hits = append(hits, hit{v: v, dist: d})
				}
			}
		}
	}
	t.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].v.ID < hits[j].v.ID
	})
	out := make([]models.Vessel, len(hits))
	for i, h := range hits {
		out[i] = h.v
	}
	return out
}

// Len returns the number of tracked vessels.
func (t *VesselTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vessels)
}

// TrackVessels wraps a vessel Source so every snapshot it produces is also
// recorded in t. Non-vessel payloads pass through untouched.
func TrackVessels(src Source, t *VesselTracker) Source {
	return SourceFunc(func(ctx context.Context, now time.Time) (models.Payload, *models.Location, error) {
		payload, loc, err := src.Sample(ctx, now)
		if err != nil {
			return payload, loc, err
		}
		if vd, ok := payload.(*models.VesselData); ok {
			for _, v := range vd.Vessels {
				t.Upsert(v, now)
			}
		}
		return payload, loc, nil
	})
}
