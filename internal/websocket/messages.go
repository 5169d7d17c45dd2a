// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sardinai/internal/models"
)

// Message types that are not topics.
const (
	MessageTypeSubscribe             = "subscribe"
	MessageTypeUnsubscribe           = "unsubscribe"
	MessageTypeHeartbeat             = "heartbeat"
	MessageTypeHeartbeatResponse     = "heartbeat_response"
	MessageTypeSubscriptionConfirmed = "subscription-confirmed"
)

// System event names carried in models.SystemData.Event.
const (
	SystemEventConnected      = "connected"
	SystemEventError          = "error"
	SystemEventServerShutdown = "server_shutdown"
)

// ClientMessage is a frame sent by a client.
type ClientMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SubscriptionRequest is the data of subscribe and unsubscribe messages.
type SubscriptionRequest struct {
	Types []string `json:"types"`
}

// ServerMessage is a frame sent by the server. For topic messages Type is
// the topic name and Data the payload.
type ServerMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      interface{}      `json:"data,omitempty"`
	Location  *models.Location `json:"location,omitempty"`
}

// InboundMessage is ServerMessage as seen by a client, with the payload
// left undecoded until the type is known.
type InboundMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Location  *models.Location `json:"location,omitempty"`
}

// SubscriptionConfirmation lists the connection's topics after a
// subscribe or unsubscribe, plus any names that were not recognised.
type SubscriptionConfirmation struct {
	Types    []models.Topic `json:"types"`
	Rejected []string       `json:"rejected,omitempty"`
}

// HeartbeatResponse echoes the client's heartbeat timestamp.
type HeartbeatResponse struct {
	ClientTimestamp string `json:"client_timestamp,omitempty"`
}

// MarshalMessage encodes msg with goccy/go-json.
func MarshalMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}
