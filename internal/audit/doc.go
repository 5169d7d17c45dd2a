// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package audit is the write-mostly persistence sink of the real-time layer.
//
// It records connection lifecycle events (including slow consumers that the
// hub disconnected), operator alert publishes and operator logins.
//
// # Architecture
//
// The audit system uses a producer-consumer pattern:
//
//	Logger.Log() -> Event Buffer (chan) -> Async Writer -> Store
//	                     |                      |
//	                 Non-blocking           Background goroutine
//
// Log never blocks the hub or a request handler. A full buffer drops the
// event, logs a warning and increments audit_events_dropped_total.
//
// # Stores
//
//   - BadgerStore: BadgerDB on disk, each event written with a TTL equal to
//     the retention period
//   - MemoryStore: bounded in-memory slice, used when no path is configured
//     and in tests
//
// # Usage Example
//
//	store, err := audit.OpenBadgerStore(audit.BadgerConfig{
//	    Path:      "/data/audit",
//	    Retention: 30 * 24 * time.Hour,
//	})
//	if err != nil {
//	    return err
//	}
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	hub := websocket.NewHub(cfg, websocket.WithObserver(audit.NewHubObserver(logger)))
//
//	events, err := logger.Recent(ctx, audit.QueryFilter{Limit: 50})
package audit
