// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package models

import (
	"fmt"
	"strings"
	"time"
)

// Topic names a real-time channel. Subscribers register per topic and every
// envelope carries exactly one.
type Topic string

const (
	TopicOceanographic Topic = "oceanographic"
	TopicPrediction    Topic = "prediction"
	TopicVessel        Topic = "vessel"
	TopicAlert         Topic = "alert"
	TopicSystem        Topic = "system"
)

// AllTopics lists every topic in a stable order.
var AllTopics = []Topic{
	TopicOceanographic,
	TopicPrediction,
	TopicVessel,
	TopicAlert,
	TopicSystem,
}

// IsValid reports whether t is a known topic.
func (t Topic) IsValid() bool {
	switch t {
	case TopicOceanographic, TopicPrediction, TopicVessel, TopicAlert, TopicSystem:
		return true
	}
	return false
}

func (t Topic) String() string { return string(t) }

// Broadcast reports whether t reaches every connection without a
// subscription. Broadcast topics cannot be subscribed to.
func (t Topic) Broadcast() bool { return t == TopicSystem }

// ParseTopic converts a wire string into a Topic.
func ParseTopic(s string) (Topic, error) {
	t := Topic(strings.TrimSpace(s))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown topic %q", s)
	}
	return t, nil
}

// Payload is implemented by every topic-specific payload. Topic reports the
// channel the variant belongs to.
type Payload interface {
	Topic() Topic
}

// Location is a WGS84 point.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// OceanographicData is a sea-state sample.
type OceanographicData struct {
	SeaSurfaceTemp   float64   `json:"sea_surface_temp" validate:"gte=-5,lte=45"`
	Chlorophyll      float64   `json:"chlorophyll" validate:"gte=0"`
	Salinity         float64   `json:"salinity" validate:"gte=0,lte=50"`
	CurrentSpeed     float64   `json:"current_speed" validate:"gte=0"`
	CurrentDirection float64   `json:"current_direction" validate:"gte=0,lte=360"`
	WaveHeight       float64   `json:"wave_height" validate:"gte=0"`
	WavePeriod       float64   `json:"wave_period" validate:"gte=0"`
	WindSpeed        float64   `json:"wind_speed" validate:"gte=0"`
	WindDirection    float64   `json:"wind_direction" validate:"gte=0,lte=360"`
	Location         *Location `json:"location,omitempty"`
}

// Topic implements Payload.
func (*OceanographicData) Topic() Topic { return TopicOceanographic }

// OptimalZone is a circular area with a high sardine probability.
type OptimalZone struct {
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Radius      float64 `json:"radius" validate:"gt=0"`
	Probability float64 `json:"probability" validate:"gte=0,lte=1"`
}

// MigrationPattern describes the expected movement of the school.
type MigrationPattern struct {
	Direction  string  `json:"direction" validate:"required"`
	Speed      float64 `json:"speed" validate:"gte=0"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// PredictionData is the output of the sardine presence model.
type PredictionData struct {
	SardineProbability float64          `json:"sardine_probability" validate:"gte=0,lte=1"`
	Confidence         float64          `json:"confidence" validate:"gte=0,lte=1"`
	OptimalZones       []OptimalZone    `json:"optimal_zones" validate:"dive"`
	MigrationPattern   MigrationPattern `json:"migration_pattern"`
}

// Topic implements Payload.
func (*PredictionData) Topic() Topic { return TopicPrediction }

// Vessel is one tracked vessel position.
type Vessel struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Speed     float64 `json:"speed" validate:"gte=0"`
	Heading   float64 `json:"heading" validate:"gte=0,lte=360"`
	Status    string  `json:"status"`
}

// VesselData is a snapshot of the vessels in the monitored area.
type VesselData struct {
	Vessels []Vessel `json:"vessels" validate:"dive"`
}

// Topic implements Payload.
func (*VesselData) Topic() Topic { return TopicVessel }

// Severity grades an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertData is a user-facing alert.
type AlertData struct {
	Type           string     `json:"type" validate:"required,max=64"`
	Severity       Severity   `json:"severity" validate:"required,oneof=low medium high critical"`
	Message        string     `json:"message" validate:"required,max=1000"`
	Location       *Location  `json:"location,omitempty"`
	ActionRequired bool       `json:"action_required"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// Topic implements Payload.
func (*AlertData) Topic() Topic { return TopicAlert }

// SystemData is a server notice such as the connection greeting or a
// protocol error.
type SystemData struct {
	Event        string  `json:"event" validate:"required"`
	Message      string  `json:"message,omitempty"`
	ConnectionID string  `json:"connection_id,omitempty"`
	Topics       []Topic `json:"topics,omitempty"`
}

// Topic implements Payload.
func (*SystemData) Topic() Topic { return TopicSystem }

// NewPayload returns an empty payload value for topic, used when decoding
// inbound envelopes.
func NewPayload(topic Topic) (Payload, error) {
	switch topic {
	case TopicOceanographic:
		return &OceanographicData{}, nil
	case TopicPrediction:
		return &PredictionData{}, nil
	case TopicVessel:
		return &VesselData{}, nil
	case TopicAlert:
		return &AlertData{}, nil
	case TopicSystem:
		return &SystemData{}, nil
	}
	return nil, fmt.Errorf("unknown topic %q", topic)
}
