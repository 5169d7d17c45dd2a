// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package feed produces the periodic payloads that the hub fans out.

A FeedAdapter owns one producer for one topic. TickerAdapter is the common
case: one timer, a Source that builds the payload, and a Publisher (the
hub) that receives it. The built-in sources are:

  - OceanSampler: synthetic sea state around the monitored area
  - NOAASource: the NOAA observations API behind a circuit breaker and rate
    limiter, falling back to OceanSampler
  - CICESESource: the CICESE ocean-data API for the Ensenada region, same
    resilience, falling back to CICESERegionalSampler
  - PredictionSampler: sardine probability and optimal zones from a
    prediction.Scorer
  - VesselSampler: a synthetic fleet moving along its headings
  - AlertSampler: alerts derived from current conditions

AISAdapter is the event-driven exception: it consumes AIS position reports
from a watermill subscriber (NATS in production) and publishes vessel
snapshots on its flush timer.

Controller applies the lifecycle policy. With on_demand an adapter runs only
while its topic has at least one subscriber; registry transitions are
queued and applied one at a time so every adapter is started and stopped
exactly once per cycle. With always every adapter runs for the lifetime of
the controller.
*/
package feed
