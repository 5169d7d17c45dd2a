// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package middleware provides chi-compatible infrastructure middleware.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - Metrics: Prometheus request counters keyed by chi route pattern
  - AccessLog: one structured log line per request

Every wrapper passes http.Hijacker through, so the stack can sit in front of
the WebSocket upgrade handler.

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)
*/
package middleware
