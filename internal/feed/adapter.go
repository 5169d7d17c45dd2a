// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
)

// ErrNoSample tells a TickerAdapter that the source has nothing to publish
// this tick. It is not logged as a failure.
var ErrNoSample = errors.New("no sample")

// FeedAdapter is a producer for one topic.
type FeedAdapter interface {
	Name() string
	Topic() models.Topic

	// Start begins producing. Calling Start on a running adapter is a
	// no-op.
	Start() error

	// Stop halts production and waits for the producer to exit. It is safe
	// to call before Start and more than once.
	Stop()
}

// Publisher accepts envelopes. *websocket.Hub implements it.
type Publisher interface {
	Publish(topic models.Topic, payload models.Payload, loc *models.Location) error
}

// Source builds one payload. now is the tick time.
type Source interface {
	Sample(ctx context.Context, now time.Time) (models.Payload, *models.Location, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, now time.Time) (models.Payload, *models.Location, error)

// Sample implements Source.
func (fn SourceFunc) Sample(ctx context.Context, now time.Time) (models.Payload, *models.Location, error) {
	return fn(ctx, now)
}
