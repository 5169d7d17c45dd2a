// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrPeerClosed is returned by Transport.Receive when the remote side
// closed the connection cleanly.
var ErrPeerClosed = errors.New("peer closed connection")

// Transport is what a Connection needs from the underlying socket.
//
// Receive is called from a single reader goroutine. Send and Ping are
// called from a single writer goroutine. Close may be called from any
// goroutine at any time and must unblock a pending Receive or Send.
type Transport interface {
	Receive() ([]byte, error)
	Send(frame []byte) error
	Ping() error
	OnPong(fn func())
	Close() error
	RemoteAddr() string
}

// closeWait bounds the close handshake write.
const closeWait = time.Second

// GorillaOptions tunes a GorillaTransport.
type GorillaOptions struct {
	WriteWait      time.Duration
	MaxMessageSize int64
}

// GorillaTransport adapts a gorilla/websocket connection. Send is
// serialised internally so the transport can also be shared by client code
// that writes from several goroutines.
type GorillaTransport struct {
	conn      *websocket.Conn
	writeWait time.Duration
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewGorillaTransport wraps conn.
func NewGorillaTransport(conn *websocket.Conn, opts GorillaOptions) *GorillaTransport {
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.MaxMessageSize > 0 {
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	return &GorillaTransport{conn: conn, writeWait: opts.WriteWait}
}

// Receive returns the next text or binary frame.
func (t *GorillaTransport) Receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil, ErrPeerClosed
		}
		return nil, err
	}
	return data, nil
}

// Send writes one text frame.
func (t *GorillaTransport) Send(frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

// Ping writes a ping control frame.
func (t *GorillaTransport) Ping() error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeWait))
}

// OnPong registers fn to run on every pong. fn runs on the reader
// goroutine.
func (t *GorillaTransport) OnPong(fn func()) {
	t.conn.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

// Close sends a normal-closure frame and closes the socket. The close frame
// is skipped while a Send or Ping is in flight: that write may be stuck on a
// peer that stopped reading, and closing the socket is what unblocks it.
func (t *GorillaTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.writeMu.TryLock() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
			t.writeMu.Unlock()
		}
		err = t.conn.Close()
	})
	return err
}

// RemoteAddr returns the peer address.
func (t *GorillaTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
