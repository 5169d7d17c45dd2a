// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package audit

import (
	"strconv"
	"time"

	"github.com/tomtom215/sardinai/internal/websocket"
)

// HubObserver turns hub connection lifecycle callbacks into audit events.
type HubObserver struct {
	logger *Logger
}

// NewHubObserver returns an observer that writes to logger.
func NewHubObserver(logger *Logger) *HubObserver {
	return &HubObserver{logger: logger}
}

var _ websocket.LifecycleObserver = (*HubObserver)(nil)

func connActor(id websocket.ConnID, info websocket.ConnInfo) Actor {
	a := Actor{ID: "conn-" + strconv.FormatUint(uint64(id), 10), Type: "client"}
	if info.User != "" {
		a.Name = info.User
	}
	return a
}

// ConnectionOpened implements websocket.LifecycleObserver.
func (o *HubObserver) ConnectionOpened(id websocket.ConnID, info websocket.ConnInfo) {
	o.logger.Log(&Event{
		Type:        EventTypeConnectionOpened,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       connActor(id, info),
		Source:      Source{IPAddress: info.RemoteAddr},
		Action:      "connect",
		Description: "Real-time client connected",
	})
}

// ConnectionClosed implements websocket.LifecycleObserver. Slow consumer
// disconnects get their own event type so they can be queried directly.
func (o *HubObserver) ConnectionClosed(id websocket.ConnID, info websocket.ConnInfo, reason websocket.CloseReason, connected time.Duration) {
	event := &Event{
		Type:        EventTypeConnectionClosed,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       connActor(id, info),
		Source:      Source{IPAddress: info.RemoteAddr},
		Action:      "disconnect",
		Description: "Real-time client disconnected: " + string(reason),
		Metadata: mustJSON(map[string]interface{}{
			"reason":            reason,
			"connected_seconds": connected.Seconds(),
		}),
	}
	switch reason {
	case websocket.ReasonSlowConsumer:
		event.Type = EventTypeSlowConsumer
		event.Severity = SeverityWarning
		event.Outcome = OutcomeFailure
	case websocket.ReasonReadError, websocket.ReasonWriteError, websocket.ReasonHeartbeatTimeout:
		event.Severity = SeverityWarning
		event.Outcome = OutcomeFailure
	}
	o.logger.Log(event)
}
