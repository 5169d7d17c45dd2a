// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package cache provides a small generic TTL cache. The NOAA poller keeps
// its last good observation here so every oceanographic tick inside the TTL
// is served without an upstream call.
//
//	c := cache.New[*Observation](5 * time.Minute)
//	key := cache.GenerateKey("noaa:observations", [2]float64{lat, lon})
//	if obs, ok := c.Get(key); ok {
//	    return obs
//	}
package cache
