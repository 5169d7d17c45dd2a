// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"testing"
	"time"
)

func TestHeartbeatStateMachine(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	interval := 30 * time.Second
	timeout := 10 * time.Second

	tests := []struct {
		name  string
		steps func(h *heartbeat) heartbeatAction
		want  heartbeatAction
		state heartbeatState
	}{
		{
			name: "nothing due before interval",
			steps: func(h *heartbeat) heartbeatAction {
				return h.due(start.Add(29 * time.Second))
			},
			want:  hbNone,
			state: hbOpen,
		},
		{
			name: "ping due at interval",
			steps: func(h *heartbeat) heartbeatAction {
				return h.due(start.Add(interval))
			},
			want:  hbSendPing,
			state: hbOpen,
		},
		{
			name: "pong returns to open",
			steps: func(h *heartbeat) heartbeatAction {
				h.pingSent(start.Add(interval))
				h.pongReceived(start.Add(interval + time.Second))
				return h.due(start.Add(interval + 5*time.Second))
			},
			want:  hbNone,
			state: hbOpen,
		},
		{
			name: "silent peer closes after timeout",
			steps: func(h *heartbeat) heartbeatAction {
				h.pingSent(start.Add(interval))
				return h.due(start.Add(interval + timeout))
			},
			want:  hbClose,
			state: hbClosed,
		},
		{
			name: "one miss forgiven with data traffic",
			steps: func(h *heartbeat) heartbeatAction {
				h.pingSent(start.Add(interval))
				h.dataReceived()
				return h.due(start.Add(interval + timeout))
			},
			want:  hbSendPing,
			state: hbAwaitingPong,
		},
		{
			name: "second miss closes even with traffic",
			steps: func(h *heartbeat) heartbeatAction {
				h.pingSent(start.Add(interval))
				h.dataReceived()
				h.due(start.Add(interval + timeout))
				h.pingSent(start.Add(interval + timeout))
				h.dataReceived()
				return h.due(start.Add(interval + 2*timeout))
			},
			want:  hbClose,
			state: hbClosed,
		},
		{
			name: "pong after forgiven miss resets",
			steps: func(h *heartbeat) heartbeatAction {
				h.pingSent(start.Add(interval))
				h.dataReceived()
				h.due(start.Add(interval + timeout))
				h.pingSent(start.Add(interval + timeout))
				h.pongReceived(start.Add(interval + timeout + time.Second))
				return h.due(start.Add(interval + timeout + 2*time.Second))
			},
			want:  hbNone,
			state: hbOpen,
		},
		{
			name: "closed is terminal",
			steps: func(h *heartbeat) heartbeatAction {
				h.pingSent(start.Add(interval))
				h.due(start.Add(interval + timeout))
				h.pongReceived(start.Add(interval + timeout + time.Second))
				return h.due(start.Add(interval + timeout + 2*time.Second))
			},
			want:  hbClose,
			state: hbClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHeartbeat(interval, timeout, start)
			if got := tt.steps(h); got != tt.want {
				t.Errorf("action = %v, want %v", got, tt.want)
			}
			if h.state != tt.state {
				t.Errorf("state = %s, want %s", h.state, tt.state)
			}
		})
	}
}

func TestHeartbeatNext(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHeartbeat(30*time.Second, 10*time.Second, start)

	if d := h.next(start.Add(10 * time.Second)); d != 20*time.Second {
		t.Errorf("open next = %v, want 20s", d)
	}

	h.pingSent(start.Add(30 * time.Second))
	if d := h.next(start.Add(32 * time.Second)); d != 8*time.Second {
		t.Errorf("awaiting next = %v, want 8s", d)
	}
	if d := h.next(start.Add(time.Hour)); d != time.Millisecond {
		t.Errorf("overdue next = %v, want 1ms floor", d)
	}
}
