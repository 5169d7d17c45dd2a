// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var errFakeWrite = errors.New("fake write failure")

// fakeTransport is an in-memory Transport. Frames the server sends land on
// sent; frames pushed with deliver are returned by Receive.
type fakeTransport struct {
	inbound chan []byte
	sent    chan []byte

	mu      sync.Mutex
	pong    func()
	blocked chan struct{} // non-nil: Send waits until it is closed

	autoPong  atomic.Bool
	failSend  atomic.Bool
	pings     atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 64),
		sent:    make(chan []byte, 4096),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) Receive() ([]byte, error) {
	select {
	case b := <-f.inbound:
		return b, nil
	case <-f.closed:
		return nil, ErrPeerClosed
	}
}

func (f *fakeTransport) Send(frame []byte) error {
	if f.failSend.Load() {
		return errFakeWrite
	}
	f.mu.Lock()
	blocked := f.blocked
	f.mu.Unlock()
	if blocked != nil {
		select {
		case <-blocked:
		case <-f.closed:
			return ErrPeerClosed
		}
	}
	select {
	case <-f.closed:
		return ErrPeerClosed
	default:
	}
	f.sent <- frame
	return nil
}

func (f *fakeTransport) Ping() error {
	f.pings.Add(1)
	if f.autoPong.Load() {
		f.mu.Lock()
		fn := f.pong
		f.mu.Unlock()
		if fn != nil {
			go fn()
		}
	}
	return nil
}

func (f *fakeTransport) OnPong(fn func()) {
	f.mu.Lock()
	f.pong = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return "fake:0" }

// block makes every later Send hang until unblock or Close.
func (f *fakeTransport) block() {
	f.mu.Lock()
	f.blocked = make(chan struct{})
	f.mu.Unlock()
}

func (f *fakeTransport) unblock() {
	f.mu.Lock()
	if f.blocked != nil {
		close(f.blocked)
		f.blocked = nil
	}
	f.mu.Unlock()
}

// deliver pushes a client frame.
func (f *fakeTransport) deliver(t *testing.T, msg interface{}) {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal client message: %v", err)
	}
	f.inbound <- b
}

// next waits for the next server frame.
func (f *fakeTransport) next(t *testing.T) InboundMessage {
	t.Helper()
	select {
	case b := <-f.sent:
		var m InboundMessage
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode server frame %s: %v", b, err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server frame")
	}
	return InboundMessage{}
}

// nextOfType skips frames until one of msgType arrives.
func (f *fakeTransport) nextOfType(t *testing.T, msgType string) InboundMessage {
	t.Helper()
	for {
		if m := f.next(t); m.Type == msgType {
			return m
		}
	}
}

// expectNone asserts no frame arrives within d.
func (f *fakeTransport) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case b := <-f.sent:
		t.Fatalf("unexpected server frame: %s", b)
	case <-time.After(d):
	}
}

// subscribe sends a subscribe request and waits for the confirmation.
func (f *fakeTransport) subscribe(t *testing.T, topics ...string) SubscriptionConfirmation {
	t.Helper()
	return f.subscription(t, MessageTypeSubscribe, topics)
}

func (f *fakeTransport) unsubscribe(t *testing.T, topics ...string) SubscriptionConfirmation {
	t.Helper()
	return f.subscription(t, MessageTypeUnsubscribe, topics)
}

func (f *fakeTransport) subscription(t *testing.T, action string, topics []string) SubscriptionConfirmation {
	t.Helper()
	data, _ := json.Marshal(SubscriptionRequest{Types: topics})
	f.deliver(t, ClientMessage{Type: action, Data: data})
	m := f.nextOfType(t, MessageTypeSubscriptionConfirmed)
	var conf SubscriptionConfirmation
	if err := json.Unmarshal(m.Data, &conf); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	return conf
}

// testHub returns a hub whose connections are closed when the test ends.
func testHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	h := NewHub(cfg)
	t.Cleanup(func() { h.CloseAll(ReasonServerClose) })
	return h
}

// acceptFake accepts a fake transport and consumes the greeting.
func acceptFake(t *testing.T, h *Hub) (*Connection, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c, err := h.Accept(ft, ConnInfo{User: "tester"})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	greeting := ft.next(t)
	if greeting.Type != string(models.TopicSystem) {
		t.Fatalf("first frame type = %q, want system greeting", greeting.Type)
	}
	return c, ft
}

func waitClosed(t *testing.T, c *Connection, within time.Duration) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(within):
		t.Fatalf("connection %d still open after %v", c.ID(), within)
	}
}
