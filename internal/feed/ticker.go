// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/metrics"
	"github.com/tomtom215/sardinai/internal/models"
)

// Sample outcomes recorded in feed_samples_total.
const (
	resultPublished    = "published"
	resultSkipped      = "skipped"
	resultSourceError  = "source_error"
	resultPublishError = "publish_error"
)

// TickerConfig configures a TickerAdapter.
type TickerConfig struct {
	Name     string
	Topic    models.Topic
	Interval time.Duration

	// Jitter is the fraction of Interval added or removed at random on
	// each tick, in [0, 1). Zero gives a fixed period.
	Jitter float64
}

// TickerAdapter samples a Source on one timer and publishes the result.
// The first sample is taken as soon as the adapter starts.
type TickerAdapter struct {
	cfg    TickerConfig
	source Source
	pub    Publisher
	random func() float64
	now    func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTickerAdapter returns a stopped adapter.
func NewTickerAdapter(cfg TickerConfig, source Source, pub Publisher) *TickerAdapter {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Jitter >= 1 {
		cfg.Jitter = 0.99
	}
	if cfg.Name == "" {
		cfg.Name = string(cfg.Topic)
	}
	return &TickerAdapter{
		cfg:    cfg,
		source: source,
		pub:    pub,
		random: rand.Float64,
		now:    time.Now,
	}
}

// Name implements FeedAdapter.
func (a *TickerAdapter) Name() string { return a.cfg.Name }

// Topic implements FeedAdapter.
func (a *TickerAdapter) Topic() models.Topic { return a.cfg.Topic }

// Running reports whether the adapter's loop is active.
func (a *TickerAdapter) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Start implements FeedAdapter.
func (a *TickerAdapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}
	if a.source == nil || a.pub == nil {
		return errors.New("feed: ticker adapter needs a source and a publisher")
	}
	a.running = true
	a.stopChan = make(chan struct{})

	a.wg.Add(1)
	go a.loop(a.stopChan)

	metrics.SetFeedAdapterRunning(a.cfg.Name, true)
	logging.Info().
		Str("adapter", a.cfg.Name).
		Str("topic", string(a.cfg.Topic)).
		Dur("interval", a.cfg.Interval).
		Float64("jitter", a.cfg.Jitter).
		Msg("Feed adapter started")
	return nil
}

// Stop implements FeedAdapter.
func (a *TickerAdapter) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stopChan)
	a.mu.Unlock()

	a.wg.Wait()
	metrics.SetFeedAdapterRunning(a.cfg.Name, false)
	logging.Info().Str("adapter", a.cfg.Name).Msg("Feed adapter stopped")
}

func (a *TickerAdapter) loop(stop <-chan struct{}) {
	defer a.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	a.tick(ctx)

	timer := time.NewTimer(a.nextInterval())
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			a.tick(ctx)
			timer.Reset(a.nextInterval())
		}
	}
}

// nextInterval returns Interval scaled by a factor in [1-Jitter, 1+Jitter).
func (a *TickerAdapter) nextInterval() time.Duration {
	if a.cfg.Jitter == 0 {
		return a.cfg.Interval
	}
	factor := 1 + a.cfg.Jitter*(2*a.random()-1)
	return time.Duration(float64(a.cfg.Interval) * factor)
}

func (a *TickerAdapter) tick(ctx context.Context) {
	sampleCtx, cancel := context.WithTimeout(ctx, a.cfg.Interval)
	defer cancel()

	payload, loc, err := a.source.Sample(sampleCtx, a.now())
	switch {
	case errors.Is(err, ErrNoSample):
		metrics.RecordFeedSample(a.cfg.Name, resultSkipped)
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		metrics.RecordFeedSample(a.cfg.Name, resultSourceError)
		logging.Warn().Err(err).Str("adapter", a.cfg.Name).Msg("Feed sample failed")
		return
	}

	if err := a.pub.Publish(a.cfg.Topic, payload, loc); err != nil {
		metrics.RecordFeedSample(a.cfg.Name, resultPublishError)
		logging.Error().Err(err).Str("adapter", a.cfg.Name).Msg("Feed publish rejected")
		return
	}
	metrics.RecordFeedSample(a.cfg.Name, resultPublished)
}
