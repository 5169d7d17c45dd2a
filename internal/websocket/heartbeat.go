// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import "time"

// heartbeatState is the liveness state of one connection.
type heartbeatState int

const (
	hbOpen heartbeatState = iota
	hbAwaitingPong
	hbClosed
)

func (s heartbeatState) String() string {
	switch s {
	case hbOpen:
		return "open"
	case hbAwaitingPong:
		return "awaiting_pong"
	default:
		return "closed"
	}
}

// heartbeatAction tells the writer what to do when the heartbeat timer
// fires.
type heartbeatAction int

const (
	hbNone heartbeatAction = iota
	hbSendPing
	hbClose
)

// heartbeat is the Open -> AwaitingPong -> Open | Closed machine. It holds
// no timers; the connection's writer asks it what is due and when to look
// again. Not safe for concurrent use.
//
// A ping is sent interval after the last pong. If the pong does not arrive
// within timeout the connection is closed, except that one miss is forgiven
// when the client sent data since the ping: a fresh ping is sent instead.
type heartbeat struct {
	interval time.Duration
	timeout  time.Duration

	state      heartbeatState
	lastPong   time.Time
	pingSentAt time.Time
	activity   bool
	missed     int
}

func newHeartbeat(interval, timeout time.Duration, now time.Time) *heartbeat {
	return &heartbeat{
		interval: interval,
		timeout:  timeout,
		state:    hbOpen,
		lastPong: now,
	}
}

// due reports the action required at now. A returned hbSendPing must be
// followed by pingSent.
func (h *heartbeat) due(now time.Time) heartbeatAction {
	switch h.state {
	case hbOpen:
		if !now.Before(h.lastPong.Add(h.interval)) {
			return hbSendPing
		}
	case hbAwaitingPong:
		if now.Before(h.pingSentAt.Add(h.timeout)) {
			return hbNone
		}
		if h.activity && h.missed == 0 {
			h.missed++
			return hbSendPing
		}
		h.state = hbClosed
		return hbClose
	case hbClosed:
		return hbClose
	}
	return hbNone
}

func (h *heartbeat) pingSent(now time.Time) {
	if h.state == hbClosed {
		return
	}
	h.state = hbAwaitingPong
	h.pingSentAt = now
	h.activity = false
}

func (h *heartbeat) pongReceived(now time.Time) {
	if h.state == hbClosed {
		return
	}
	h.state = hbOpen
	h.lastPong = now
	h.missed = 0
	h.activity = false
}

// dataReceived records inbound traffic other than a pong.
func (h *heartbeat) dataReceived() {
	h.activity = true
}

// next returns how long the writer may wait before calling due again.
func (h *heartbeat) next(now time.Time) time.Duration {
	var at time.Time
	switch h.state {
	case hbOpen:
		at = h.lastPong.Add(h.interval)
	case hbAwaitingPong:
		at = h.pingSentAt.Add(h.timeout)
	default:
		return 0
	}
	if d := at.Sub(now); d > time.Millisecond {
		return d
	}
	return time.Millisecond
}
