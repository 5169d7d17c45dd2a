// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/metrics"
	"github.com/tomtom215/sardinai/internal/models"
)

// AISReport is one position report as published on the AIS subject.
type AISReport struct {
	MMSI      uint64     `json:"mmsi"`
	Name      string     `json:"name"`
	ShipType  string     `json:"ship_type"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	SOG       float64    `json:"sog"` // knots
	COG       float64    `json:"cog"` // degrees
	NavStatus string     `json:"nav_status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

var errInvalidReport = errors.New("invalid AIS report")

func (r *AISReport) validate() error {
	switch {
	case r.MMSI == 0 || r.MMSI > 999999999:
		return fmt.Errorf("%w: mmsi %d", errInvalidReport, r.MMSI)
	case r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180:
		return fmt.Errorf("%w: position %.5f,%.5f", errInvalidReport, r.Lat, r.Lon)
	case r.SOG < 0 || math.IsNaN(r.SOG):
		return fmt.Errorf("%w: sog %v", errInvalidReport, r.SOG)
	case math.IsNaN(r.COG) || math.IsInf(r.COG, 0):
		return fmt.Errorf("%w: cog %v", errInvalidReport, r.COG)
	}
	return nil
}

func (r *AISReport) vessel() models.Vessel {
	heading := math.Mod(r.COG, 360)
	if heading < 0 {
		heading += 360
	}
	status := r.NavStatus
	if status == "" {
		status = statusForSpeed(r.SOG)
	}
	return models.Vessel{
		ID:        strconv.FormatUint(r.MMSI, 10),
		Name:      r.Name,
		Type:      r.ShipType,
		Latitude:  r.Lat,
		Longitude: r.Lon,
		Speed:     r.SOG,
		Heading:   heading,
		Status:    status,
	}
}

// AISConfig configures an AISAdapter.
type AISConfig struct {
	Name          string
	Subject       string
	FlushInterval time.Duration
	StaleAfter    time.Duration
}

// AISAdapter consumes AIS reports from a watermill subscriber and publishes
// the current fleet as a vessel snapshot once per FlushInterval. It owns
// one timer; the consumer goroutine only updates the tracker.
type AISAdapter struct {
	cfg     AISConfig
	sub     message.Subscriber
	pub     Publisher
	tracker *VesselTracker
	now     func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAISAdapter returns a stopped adapter. The tracker is shared so other
// components can query it.
func NewAISAdapter(cfg AISConfig, sub message.Subscriber, pub Publisher, tracker *VesselTracker) *AISAdapter {
	if cfg.Name == "" {
		cfg.Name = "ais"
	}
	if cfg.Subject == "" {
		cfg.Subject = "ais.positions"
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if tracker == nil {
		tracker = NewVesselTracker(0)
	}
	return &AISAdapter{cfg: cfg, sub: sub, pub: pub, tracker: tracker, now: time.Now}
}

// Name implements FeedAdapter.
func (a *AISAdapter) Name() string { return a.cfg.Name }

// Topic implements FeedAdapter.
func (a *AISAdapter) Topic() models.Topic { return models.TopicVessel }

// Tracker returns the vessel tracker fed by this adapter.
func (a *AISAdapter) Tracker() *VesselTracker { return a.tracker }

// Start implements FeedAdapter.
func (a *AISAdapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := a.sub.Subscribe(ctx, a.cfg.Subject)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to %s: %w", a.cfg.Subject, err)
	}
	a.running = true
	a.cancel = cancel

	a.wg.Add(2)
	go a.consume(ctx, messages)
	go a.flushLoop(ctx)

	metrics.SetFeedAdapterRunning(a.cfg.Name, true)
	logging.Info().
		Str("adapter", a.cfg.Name).
		Str("subject", a.cfg.Subject).
		Dur("flush_interval", a.cfg.FlushInterval).
		Msg("AIS adapter started")
	return nil
}

// Stop implements FeedAdapter.
func (a *AISAdapter) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.cancel()
	a.mu.Unlock()

	a.wg.Wait()
	metrics.SetFeedAdapterRunning(a.cfg.Name, false)
	logging.Info().Str("adapter", a.cfg.Name).Msg("AIS adapter stopped")
}

func (a *AISAdapter) consume(ctx context.Context, messages <-chan *message.Message) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			a.handle(msg)
			msg.Ack()
		}
	}
}

// handle records one report. Malformed reports are acked and counted, never
// redelivered.
func (a *AISAdapter) handle(msg *message.Message) {
	var r AISReport
	if err := json.Unmarshal(msg.Payload, &r); err != nil {
		metrics.AISReportsReceived.WithLabelValues("invalid").Inc()
		logging.Debug().Err(err).Str("message_uuid", msg.UUID).Msg("Undecodable AIS report")
		return
	}
	if err := r.validate(); err != nil {
		metrics.AISReportsReceived.WithLabelValues("invalid").Inc()
		logging.Debug().Err(err).Str("message_uuid", msg.UUID).Msg("Rejected AIS report")
		return
	}

	seen := a.now()
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		seen = *r.Timestamp
	}
	if a.tracker.Upsert(r.vessel(), seen) {
		metrics.AISReportsReceived.WithLabelValues("accepted").Inc()
	} else {
		metrics.AISReportsReceived.WithLabelValues("out_of_order").Inc()
	}
}

func (a *AISAdapter) flushLoop(ctx context.Context) {
	defer a.wg.Done()

	timer := time.NewTimer(a.cfg.FlushInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			a.flush()
			timer.Reset(a.cfg.FlushInterval)
		}
	}
}

// flush prunes stale vessels and publishes the rest. An empty fleet is not
// published.
func (a *AISAdapter) flush() {
	if n := a.tracker.PruneBefore(a.now().Add(-a.cfg.StaleAfter)); n > 0 {
		logging.Debug().Int("pruned", n).Msg("Pruned stale AIS vessels")
	}

	vessels := a.tracker.Snapshot()
	if len(vessels) == 0 {
		metrics.RecordFeedSample(a.cfg.Name, resultSkipped)
		return
	}
	if err := a.pub.Publish(models.TopicVessel, &models.VesselData{Vessels: vessels}, nil); err != nil {
		metrics.RecordFeedSample(a.cfg.Name, resultPublishError)
		logging.Error().Err(err).Str("adapter", a.cfg.Name).Msg("AIS snapshot rejected")
		return
	}
	metrics.RecordFeedSample(a.cfg.Name, resultPublished)
}
