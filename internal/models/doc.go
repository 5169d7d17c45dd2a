// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package models defines the data structures shared across SARDIN-AI.

Key Components:

  - Topic: the closed set of real-time channels (oceanographic, prediction,
    vessel, alert, system)
  - Payload: tagged union of per-topic payload structs; each variant reports
    the topic it belongs to so the hub can reject mismatched publishes
  - Location: WGS84 point attached to envelopes and payloads
  - APIResponse: standard REST response wrapper

Payload variants carry go-playground/validator tags. Validation happens once
at the publish boundary (see internal/validation), never per recipient.

Example:

	payload := &models.AlertData{
	    Type:     "weather_warning",
	    Severity: models.SeverityHigh,
	    Message:  "Wind above 25 knots",
	}
	if err := hub.Publish(models.TopicAlert, payload, nil); err != nil {
	    return err
	}
*/
package models
