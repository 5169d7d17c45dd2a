// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package prediction scores sea conditions for sardine presence.
//
// The hub treats scoring as an opaque collaborator: a Scorer maps Features
// to a probability in [0, 1]. SardineScorer is the rule-based model used by
// the prediction feed; a trained model can replace it behind the same
// interface.
package prediction

import "time"

// Features are the inputs of one score.
type Features struct {
	SeaSurfaceTemp float64 // °C
	Chlorophyll    float64 // mg/m³
	Salinity       float64 // PSU
	CurrentSpeed   float64 // m/s
	DayOfYear      int     // 1-366
	Hour           int     // 0-23, UTC
}

// FeaturesAt fills the calendar fields of f from t.
func (f Features) FeaturesAt(t time.Time) Features {
	t = t.UTC()
	f.DayOfYear = t.YearDay()
	f.Hour = t.Hour()
	return f
}

// Scorer maps features to a probability in [0, 1].
type Scorer interface {
	Score(f Features) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(f Features) float64

// Score implements Scorer.
func (fn ScorerFunc) Score(f Features) float64 { return fn(f) }

// SardineScorer is an additive rule model for Sardinops sagax.
type SardineScorer struct{}

// Score implements Scorer.
func (SardineScorer) Score(f Features) float64 {
	p := 0.5

	switch {
	case between(f.SeaSurfaceTemp, 16, 20):
		p += 0.3
	case between(f.SeaSurfaceTemp, 14, 22):
		p += 0.15
	default:
		p -= 0.2
	}

	switch {
	case between(f.Chlorophyll, 0.5, 1.2):
		p += 0.2
	case between(f.Chlorophyll, 0.3, 1.5):
		p += 0.1
	default:
		p -= 0.1
	}

	if between(f.Salinity, 33.5, 34.5) {
		p += 0.1
	} else {
		p -= 0.05
	}

	if between(f.CurrentSpeed, 0.3, 1.0) {
		p += 0.1
	} else {
		p -= 0.05
	}

	day := float64(f.DayOfYear)
	switch {
	case between(day, 60, 150), between(day, 240, 330): // spring, autumn
		p += 0.15
	case between(day, 150, 240):
		p += 0.05
	default:
		p -= 0.1
	}

	if IsDaytime(f.Hour) {
		p += 0.1
	} else {
		p -= 0.05
	}

	return Clamp01(p)
}

// Confidence derives the reported confidence from a probability and a
// spread in [-0.1, 0.1]. It never exceeds 0.95.
func Confidence(probability, spread float64) float64 {
	c := probability + spread
	if c > 0.95 {
		c = 0.95
	}
	return Clamp01(c)
}

// IsDaytime reports whether hour falls in 06:00-18:00 inclusive.
func IsDaytime(hour int) bool {
	return hour >= 6 && hour <= 18
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
