// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
)

// ConnState is the lifecycle state of a Connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// CloseReason records why a connection left Open.
type CloseReason string

const (
	ReasonClientClosed     CloseReason = "client_closed"
	ReasonReadError        CloseReason = "read_error"
	ReasonWriteError       CloseReason = "write_error"
	ReasonHeartbeatTimeout CloseReason = "heartbeat_timeout"
	ReasonSlowConsumer     CloseReason = "slow_consumer"
	ReasonShutdown         CloseReason = "shutdown"
	ReasonServerClose      CloseReason = "server_close"
)

// drains reports whether queued frames are flushed before the transport is
// closed. Failure paths close immediately.
func (r CloseReason) drains() bool {
	switch r {
	case ReasonClientClosed, ReasonShutdown, ReasonServerClose:
		return true
	}
	return false
}

// ConnInfo describes the peer at accept time.
type ConnInfo struct {
	User       string
	RemoteAddr string
}

type enqueueResult int

const (
	enqueued enqueueResult = iota
	queueFull
	notOpen
)

// Connection owns one client's send queue, reader, writer and heartbeat.
// All state changes go through Close, which runs once.
type Connection struct {
	id        ConnID
	info      ConnInfo
	hub       *Hub
	transport Transport

	send   chan []byte
	done   chan struct{} // closed when the connection leaves Open
	closed chan struct{} // closed when both goroutines have exited

	state       atomic.Int32
	stateMu     sync.Mutex // orders subscription changes against Close
	closeOnce   sync.Once
	closeReason atomic.Value // CloseReason

	hbMu            sync.Mutex
	hb              *heartbeat
	lastHeartbeatAt atomic.Int64 // unix nanos of the last pong or client heartbeat

	connectedAt time.Time
	wg          sync.WaitGroup
}

func newConnection(id ConnID, h *Hub, t Transport, info ConnInfo) *Connection {
	now := h.now()
	if info.RemoteAddr == "" {
		info.RemoteAddr = t.RemoteAddr()
	}
	c := &Connection{
		id:          id,
		info:        info,
		hub:         h,
		transport:   t,
		send:        make(chan []byte, h.cfg.SendQueueDepth),
		done:        make(chan struct{}),
		closed:      make(chan struct{}),
		hb:          newHeartbeat(h.cfg.HeartbeatInterval, h.cfg.HeartbeatTimeout, now),
		connectedAt: now,
	}
	c.state.Store(int32(StateConnecting))
	c.lastHeartbeatAt.Store(now.UnixNano())
	return c
}

// ID returns the connection identifier.
func (c *Connection) ID() ConnID { return c.id }

// Info returns the peer description given at accept time.
func (c *Connection) Info() ConnInfo { return c.info }

// State returns the current lifecycle state.
func (c *Connection) State() ConnState { return ConnState(c.state.Load()) }

// QueueDepth returns the number of frames waiting to be written.
func (c *Connection) QueueDepth() int { return len(c.send) }

// LastHeartbeatAt returns the time of the last pong or client heartbeat.
func (c *Connection) LastHeartbeatAt() time.Time {
	return time.Unix(0, c.lastHeartbeatAt.Load())
}

// Topics returns the connection's current subscriptions.
func (c *Connection) Topics() []models.Topic {
	return c.hub.registry.TopicsOf(c.id)
}

// CloseReason returns why the connection was closed, or "" while open.
func (c *Connection) CloseReason() CloseReason {
	r, _ := c.closeReason.Load().(CloseReason)
	return r
}

// Done is closed as soon as the connection leaves Open.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Wait blocks until the reader and writer have exited.
func (c *Connection) Wait() { <-c.closed }

// start moves Connecting -> Open and launches the reader and writer.
func (c *Connection) start() {
	c.transport.OnPong(c.onPong)
	c.stateMu.Lock()
	if c.State() == StateConnecting {
		c.state.Store(int32(StateOpen))
	}
	c.stateMu.Unlock()

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	go func() {
		c.wg.Wait()
		c.state.Store(int32(StateClosed))
		close(c.closed)
	}()
}

// whileOpen runs fn only if the connection is still Open, and keeps Close
// from starting until fn returns.
func (c *Connection) whileOpen(fn func()) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.State() != StateOpen {
		return false
	}
	fn()
	return true
}

// enqueue hands frame to the writer without blocking.
func (c *Connection) enqueue(frame []byte) enqueueResult {
	if c.State() != StateOpen {
		return notOpen
	}
	select {
	case <-c.done:
		return notOpen
	default:
	}
	select {
	case c.send <- frame:
		return enqueued
	default:
		return queueFull
	}
}

// Close leaves Open with reason. The connection is removed from the hub
// and the registry before Close returns, so no later publish targets it.
// Draining reasons let the writer flush the queue (bounded by the hub's
// drain timeout); every other reason closes the transport at once, off the
// caller's goroutine so a writer stuck on a dead peer cannot stall it.
func (c *Connection) Close(reason CloseReason) {
	c.closeOnce.Do(func() {
		c.closeReason.Store(reason)
		c.stateMu.Lock()
		c.state.Store(int32(StateClosing))
		c.stateMu.Unlock()
		c.hub.detach(c, reason)
		close(c.done)

		if !reason.drains() {
			go func() { _ = c.transport.Close() }()
		}
	})
}

func (c *Connection) onPong() {
	now := c.hub.now()
	c.hbMu.Lock()
	c.hb.pongReceived(now)
	c.hbMu.Unlock()
	c.lastHeartbeatAt.Store(now.UnixNano())
}

func (c *Connection) onData() {
	c.hbMu.Lock()
	c.hb.dataReceived()
	c.hbMu.Unlock()
}

func (c *Connection) readLoop() {
	defer c.wg.Done()

	for {
		data, err := c.transport.Receive()
		if err != nil {
			reason := ReasonReadError
			if errors.Is(err, ErrPeerClosed) {
				reason = ReasonClientClosed
			}
			if c.State() == StateOpen {
				logging.Debug().
					Err(err).
					Uint64("conn_id", uint64(c.id)).
					Str("reason", string(reason)).
					Msg("Real-time connection read ended")
			}
			c.Close(reason)
			return
		}
		c.onData()
		c.hub.handleClientMessage(c, data)
	}
}

func (c *Connection) writeLoop() {
	defer c.wg.Done()

	c.hbMu.Lock()
	timer := time.NewTimer(c.hb.next(c.hub.now()))
	c.hbMu.Unlock()
	defer timer.Stop()

	for {
		select {
		case <-c.done:
			if c.CloseReason().drains() {
				c.drain()
				_ = c.transport.Close()
			}
			return

		case frame := <-c.send:
			if err := c.transport.Send(frame); err != nil {
				logging.Debug().Err(err).Uint64("conn_id", uint64(c.id)).Msg("Real-time write failed")
				c.Close(ReasonWriteError)
				return
			}

		case <-timer.C:
			now := c.hub.now()
			c.hbMu.Lock()
			action := c.hb.due(now)
			if action == hbSendPing {
				c.hb.pingSent(now)
			}
			wait := c.hb.next(now)
			c.hbMu.Unlock()

			switch action {
			case hbSendPing:
				if err := c.transport.Ping(); err != nil {
					c.Close(ReasonWriteError)
					return
				}
			case hbClose:
				logging.Info().
					Uint64("conn_id", uint64(c.id)).
					Str("user", c.info.User).
					Dur("timeout", c.hub.cfg.HeartbeatTimeout).
					Msg("Heartbeat timeout, closing real-time connection")
				c.Close(ReasonHeartbeatTimeout)
				return
			}
			timer.Reset(wait)
		}
	}
}

// drain writes what is already queued until the queue is empty or the
// drain timeout passes.
func (c *Connection) drain() {
	deadline := time.NewTimer(c.hub.cfg.DrainTimeout)
	defer deadline.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.transport.Send(frame); err != nil {
				return
			}
		case <-deadline.C:
			logging.Warn().
				Uint64("conn_id", uint64(c.id)).
				Int("pending", len(c.send)).
				Msg("Drain timeout, discarding queued frames")
			return
		default:
			return
		}
	}
}

func (c *Connection) String() string {
	return "conn-" + strconv.FormatUint(uint64(c.id), 10)
}
