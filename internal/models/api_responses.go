// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package models

import (
	"time"
)

// APIResponse is the envelope returned by every REST endpoint.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "severity must be one of [low medium high critical]",
//	    "details": {"field": "severity"}
//	  },
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response bookkeeping.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body.
//
// Common error codes:
//   - VALIDATION_ERROR: payload failed validation
//   - INVALID_REQUEST: body could not be decoded
//   - UNAUTHORIZED: missing or invalid credentials
//   - PUBLISH_FAILED: the hub rejected the publish
//   - SERVICE_UNAVAILABLE: a dependency is not initialised
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TokenResponse is returned by the operator login endpoint.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status      string         `json:"status"`
	Version     string         `json:"version,omitempty"`
	Uptime      float64        `json:"uptime_seconds"`
	Connections int            `json:"connections"`
	Checks      map[string]any `json:"checks,omitempty"`
}
