// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package client is the reconnecting counterpart of the real-time hub.

A Client keeps one logical connection to the hub's WebSocket endpoint over a
transport that is recreated after every failure. Callers register callbacks
per message type and the client keeps the server-side subscriptions in step:

	c, err := client.New(client.Config{URL: "ws://localhost:3857/ws"})
	if err != nil {
	    return err
	}
	unsubscribe := c.Subscribe("alert", func(msg client.Message) {
	    var alert models.AlertData
	    _ = msg.Decode(&alert)
	})
	defer unsubscribe()
	c.Start()
	defer c.Close()

Reconnects follow an exponential schedule (BaseDelay * 2^(attempt-1)). After
MaxReconnectAttempts consecutive failures the client stops trying and
reports Failed until Reconnect is called. Send while disconnected fails
immediately with ErrNotConnected; nothing is queued.
*/
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/websocket"
)

// Wildcard registers a callback for every inbound message.
const Wildcard = "*"

var (
	// ErrNotConnected is returned by Send when there is no open transport.
	ErrNotConnected = errors.New("client is not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client is closed")
)

// State is the connection state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Status is a point-in-time view of the client.
type Status struct {
	State       State
	Attempt     int
	MaxAttempts int
	Failed      bool
	LastError   string
	Topics      []models.Topic
}

// Connected reports whether the client has an open transport.
func (s Status) Connected() bool { return s.State == StateConnected }

// Config configures a Client.
type Config struct {
	URL                  string
	Header               http.Header
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	HandshakeTimeout     time.Duration
	WriteWait            time.Duration
	MaxMessageSize       int64
}

func (c *Config) applyDefaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Minute
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 20
	}
}

// Dialer opens a transport to url.
type Dialer func(ctx context.Context, url string, header http.Header) (websocket.Transport, error)

// Callback receives one inbound message. Callbacks run on the client's
// read goroutine and should return quickly.
type Callback func(Message)

// Message is an inbound frame with its payload left encoded.
type Message struct {
	Type      string
	Timestamp time.Time
	Data      json.RawMessage
	Location  *models.Location
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("message %q has no data", m.Type)
	}
	return json.Unmarshal(m.Data, v)
}

// Payload decodes the payload of a topic message into its typed variant.
func (m Message) Payload() (models.Payload, error) {
	topic, err := models.ParseTopic(m.Type)
	if err != nil {
		return nil, err
	}
	p, err := models.NewPayload(topic)
	if err != nil {
		return nil, err
	}
	if err := m.Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithSleeper replaces the backoff wait. sleep must return early with the
// context error when ctx is cancelled.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithStatusListener is called after every state change.
func WithStatusListener(fn func(Status)) Option {
	return func(c *Client) { c.onStatus = fn }
}

type subscription struct {
	id uint64
	cb Callback
}

// Client is a reconnecting hub client. It is safe for concurrent use.
type Client struct {
	cfg      Config
	dial     Dialer
	sleep    func(ctx context.Context, d time.Duration) error
	onStatus func(Status)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State
	transport websocket.Transport
	attempt   int
	failed    bool
	lastErr   string
	running   bool
	closed    bool

	subMu  sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
}

// New validates cfg and returns a stopped client.
func New(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid url scheme %q: must be ws or wss", u.Scheme)
	}
	cfg.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:    cfg,
		sleep:  sleepContext,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string][]subscription),
	}
	c.dial = c.dialGorilla
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins connecting in the background. It is a no-op when the
// client is already running.
func (c *Client) Start() error {
	return c.Reconnect()
}

// Reconnect restarts the connect loop after the retry budget was exhausted
// and resets the attempt counter. It is a no-op while the loop is running.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.failed = false
	c.attempt = 0
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run()
	return nil
}

// Close stops the connect loop, closes the transport and waits for the
// client's goroutines. Subscriptions are kept.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	t := c.transport
	c.mu.Unlock()

	c.cancel()
	if t != nil {
		_ = t.Close()
	}
	c.wg.Wait()
	return nil
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	st := Status{
		State:       c.state,
		Attempt:     c.attempt,
		MaxAttempts: c.cfg.MaxReconnectAttempts,
		Failed:      c.failed,
		LastError:   c.lastErr,
	}
	c.mu.Unlock()
	st.Topics = c.subscribedTopics()
	return st
}

// Subscribe registers cb for messages of type topic, or for every message
// when topic is Wildcard. The first callback for a hub topic sends a
// subscribe frame if connected; otherwise the subscription is sent on the
// next connect. The returned function removes cb and is safe to call more
// than once.
func (c *Client) Subscribe(topic string, cb Callback) (unsubscribe func()) {
	c.subMu.Lock()
	c.nextID++
	id := c.nextID
	first := len(c.subs[topic]) == 0
	c.subs[topic] = append(c.subs[topic], subscription{id: id, cb: cb})
	c.subMu.Unlock()

	if first && isHubTopic(topic) {
		c.sendSubscription(websocket.MessageTypeSubscribe, []string{topic})
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(topic, id) })
	}
}

func (c *Client) unsubscribe(topic string, id uint64) {
	c.subMu.Lock()
	list := c.subs[topic]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	last := len(list) == 0
	if last {
		delete(c.subs, topic)
	} else {
		c.subs[topic] = list
	}
	c.subMu.Unlock()

	if last && isHubTopic(topic) {
		c.sendSubscription(websocket.MessageTypeUnsubscribe, []string{topic})
	}
}

// sendSubscription is best effort: when disconnected the change is carried
// by the resubscribe on the next connect.
func (c *Client) sendSubscription(msgType string, topics []string) {
	if !c.Status().Connected() {
		return
	}
	if err := c.sendFrame(msgType, websocket.SubscriptionRequest{Types: topics}); err != nil {
		logging.Debug().Err(err).Str("type", msgType).Strs("topics", topics).Msg("Subscription change not sent")
	}
}

// Send encodes msg as JSON and writes it. While disconnected it returns
// ErrNotConnected; the message is not queued.
func (c *Client) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.write(data)
}

func (c *Client) sendFrame(msgType string, data interface{}) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", msgType, err)
		}
		raw = b
	}
	return c.Send(websocket.ClientMessage{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      raw,
	})
}

func (c *Client) write(frame []byte) error {
	c.mu.Lock()
	t := c.transport
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || t == nil {
		logging.Warn().Str("url", c.cfg.URL).Msg("Dropping outbound message: not connected")
		return ErrNotConnected
	}
	if err := t.Send(frame); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// run owns the connect, read and backoff cycle until the retry budget is
// exhausted or the client is closed.
func (c *Client) run() {
	defer c.wg.Done()

	b := c.newBackOff()
	for {
		err := c.connectAndServe()
		if c.ctx.Err() != nil {
			c.finish(false, nil)
			return
		}
		if err == nil {
			// A session ended after a successful connect; start over.
			b.Reset()
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			c.finish(true, err)
			return
		}

		c.mu.Lock()
		c.attempt++
		attempt := c.attempt
		c.mu.Unlock()

		logging.Info().
			Str("url", c.cfg.URL).
			Int("attempt", attempt).
			Int("max_attempts", c.cfg.MaxReconnectAttempts).
			Dur("delay", delay).
			Msg("Reconnecting")

		if err := c.sleep(c.ctx, delay); err != nil {
			c.finish(false, nil)
			return
		}
	}
}

// newBackOff yields BaseDelay, 2*BaseDelay, 4*BaseDelay ... without jitter
// and stops after MaxReconnectAttempts values.
func (c *Client) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BaseDelay
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = c.cfg.MaxDelay
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(c.cfg.MaxReconnectAttempts))
}

func (c *Client) finish(failed bool, err error) {
	c.mu.Lock()
	c.running = false
	c.failed = failed
	c.state = StateDisconnected
	c.mu.Unlock()

	if failed {
		logging.Error().
			Err(err).
			Str("url", c.cfg.URL).
			Int("attempts", c.cfg.MaxReconnectAttempts).
			Msg("Reconnect attempts exhausted, giving up")
	}
	c.notify()
}

// connectAndServe dials once and, on success, reads until the transport
// fails. A nil return means the connection was established.
func (c *Client) connectAndServe() error {
	c.setState(StateConnecting, "")

	t, err := c.dial(c.ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		c.setState(StateDisconnected, err.Error())
		logging.Warn().Err(err).Str("url", c.cfg.URL).Msg("Connect failed")
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = t.Close()
		return ErrClosed
	}
	c.transport = t
	c.state = StateConnected
	c.attempt = 0
	c.lastErr = ""
	c.mu.Unlock()
	c.notify()

	logging.Info().Str("url", c.cfg.URL).Msg("Connected")
	c.resubscribe()

	stopHeartbeat := c.startHeartbeat()
	readErr := c.readLoop(t)
	stopHeartbeat()
	_ = t.Close()

	c.mu.Lock()
	c.transport = nil
	c.mu.Unlock()
	c.setState(StateDisconnected, readErr.Error())

	if c.ctx.Err() == nil {
		logging.Warn().Err(readErr).Str("url", c.cfg.URL).Msg("Connection lost")
	}
	return nil
}

func (c *Client) readLoop(t websocket.Transport) error {
	for {
		data, err := t.Receive()
		if err != nil {
			return err
		}
		c.dispatch(data)
	}
}

func (c *Client) resubscribe() {
	topics := c.subscribedTopics()
	if len(topics) == 0 {
		return
	}
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = string(t)
	}
	if err := c.sendFrame(websocket.MessageTypeSubscribe, websocket.SubscriptionRequest{Types: names}); err != nil {
		logging.Warn().Err(err).Msg("Resubscribe failed")
	}
}

func (c *Client) startHeartbeat() (stop func()) {
	if c.cfg.HeartbeatInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.sendFrame(websocket.MessageTypeHeartbeat, nil); err != nil {
					logging.Debug().Err(err).Msg("Heartbeat not sent")
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// dispatch hands msg to every callback for its type and to the wildcard
// callbacks. A panicking callback is logged and does not affect the rest.
func (c *Client) dispatch(data []byte) {
	var in websocket.InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		logging.Warn().Err(err).Msg("Discarding undecodable message")
		return
	}
	msg := Message{Type: in.Type, Timestamp: in.Timestamp, Data: in.Data, Location: in.Location}

	c.subMu.RLock()
	targets := make([]Callback, 0, len(c.subs[in.Type])+len(c.subs[Wildcard]))
	for _, s := range c.subs[in.Type] {
		targets = append(targets, s.cb)
	}
	if in.Type != Wildcard {
		for _, s := range c.subs[Wildcard] {
			targets = append(targets, s.cb)
		}
	}
	c.subMu.RUnlock()

	for _, cb := range targets {
		invoke(cb, msg)
	}
}

func invoke(cb Callback, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("type", msg.Type).
				Interface("panic", r).
				Msg("Message callback panicked")
		}
	}()
	cb(msg)
}

// subscribedTopics lists the hub topics that have at least one callback.
func (c *Client) subscribedTopics() []models.Topic {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	out := make([]models.Topic, 0, len(c.subs))
	for name := range c.subs {
		if isHubTopic(name) {
			out = append(out, models.Topic(name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Client) setState(s State, lastErr string) {
	c.mu.Lock()
	c.state = s
	if lastErr != "" {
		c.lastErr = lastErr
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Client) notify() {
	if c.onStatus != nil {
		c.onStatus(c.Status())
	}
}

func (c *Client) dialGorilla(ctx context.Context, rawURL string, header http.Header) (websocket.Transport, error) {
	dialer := gorillaws.Dialer{
		HandshakeTimeout:  c.cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return websocket.NewGorillaTransport(conn, websocket.GorillaOptions{
		WriteWait:      c.cfg.WriteWait,
		MaxMessageSize: c.cfg.MaxMessageSize,
	}), nil
}

func isHubTopic(name string) bool {
	t, err := models.ParseTopic(name)
	return err == nil && string(t) == name
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
