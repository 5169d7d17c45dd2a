// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache[V any](ttl time.Duration) (*Cache[V], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := New[V](ttl)
	c.now = clk.now
	return c, clk
}

func TestCacheGetSet(t *testing.T) {
	c, _ := newTestCache[string](time.Minute)

	c.Set("a", "sardine")
	if v, ok := c.Get("a"); !ok || v != "sardine" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) should miss")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Keys != 1 {
		t.Errorf("stats = %+v", s)
	}
	if got := c.HitRate(); got != 50 {
		t.Errorf("HitRate = %v, want 50", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		elapsed time.Duration
		want    bool
	}{
		{"fresh", time.Minute, 30 * time.Second, true},
		{"at deadline", time.Minute, time.Minute, false},
		{"expired", time.Minute, 2 * time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk := newTestCache[int](tt.ttl)
			c.Set("k", 7)
			clk.advance(tt.elapsed)
			if _, ok := c.Get("k"); ok != tt.want {
				t.Errorf("Get ok = %v, want %v", ok, tt.want)
			}
			if !tt.want && c.Stats().Evictions != 1 {
				t.Errorf("evictions = %d, want 1", c.Stats().Evictions)
			}
		})
	}
}

func TestCacheSetWithTTLOverridesDefault(t *testing.T) {
	c, clk := newTestCache[int](time.Hour)
	c.SetWithTTL("short", 1, time.Second)
	c.Set("long", 2)
	clk.advance(2 * time.Second)

	if _, ok := c.Get("short"); ok {
		t.Error("short-lived entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("default-TTL entry should still be present")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c, _ := newTestCache[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	c.Clear()
	if s := c.Stats(); s.Keys != 0 || s.Evictions != 2 {
		t.Errorf("stats after clear = %+v", s)
	}
}

func TestCachePrunesExpiredOnGrowth(t *testing.T) {
	c, clk := newTestCache[int](time.Second)
	for i := 0; i < pruneThreshold; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	clk.advance(2 * time.Second)
	c.Set("fresh", 1)

	if s := c.Stats(); s.Keys != 1 {
		t.Errorf("keys = %d, want 1 after sweep", s.Keys)
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("noaa:observations", [2]float64{32.5, -117.5})
	b := GenerateKey("noaa:observations", [2]float64{32.5, -117.5})
	c := GenerateKey("noaa:observations", [2]float64{33.0, -117.5})
	if a != b {
		t.Error("same params should give the same key")
	}
	if a == c {
		t.Error("different params should give different keys")
	}
	if len(a) != len("noaa:observations:")+32 {
		t.Errorf("unexpected key %q", a)
	}
}
