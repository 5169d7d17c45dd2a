// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/metrics"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/validation"
)

// Publish errors. All are returned before any subscriber is touched.
var (
	ErrUnknownTopic    = errors.New("unknown topic")
	ErrPayloadMismatch = errors.New("payload does not match topic")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrEncode          = errors.New("encode envelope")
	ErrHubClosed       = errors.New("hub is closed")
)

// ShutdownReason identifies why the hub run loop stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Config holds the hub's connection parameters.
type Config struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	SendQueueDepth    int
	DrainTimeout      time.Duration
	StatsInterval     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
		SendQueueDepth:    256,
		DrainTimeout:      5 * time.Second,
		StatsInterval:     15 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if c.SendQueueDepth <= 0 {
		c.SendQueueDepth = d.SendQueueDepth
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = d.StatsInterval
	}
}

// LifecycleObserver is told when connections open and close. Calls are made
// synchronously from the goroutine that changed the state and must not
// block.
type LifecycleObserver interface {
	ConnectionOpened(id ConnID, info ConnInfo)
	ConnectionClosed(id ConnID, info ConnInfo, reason CloseReason, connected time.Duration)
}

// Option configures a Hub.
type Option func(*Hub)

// WithObserver installs a lifecycle observer.
func WithObserver(o LifecycleObserver) Option {
	return func(h *Hub) { h.observer = o }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

type topicCounters struct {
	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// TopicStats is a per-topic snapshot.
type TopicStats struct {
	Topic       models.Topic `json:"topic"`
	Subscribers int          `json:"subscribers"`
	Published   uint64       `json:"published"`
	Delivered   uint64       `json:"delivered"`
	Dropped     uint64       `json:"dropped"`
}

// Stats is a hub-wide snapshot.
type Stats struct {
	Connections int          `json:"connections"`
	Topics      []TopicStats `json:"topics"`
	StartedAt   time.Time    `json:"started_at"`
}

// Hub fans envelopes out to subscribed connections. It owns the registry and
// every connection accepted through it.
type Hub struct {
	cfg      Config
	registry *Registry
	observer LifecycleObserver
	now      func() time.Time

	mu     sync.RWMutex
	conns  map[ConnID]*Connection
	nextID atomic.Uint64
	closed atomic.Bool

	counters  map[models.Topic]*topicCounters // fixed at construction
	startedAt time.Time
}

// NewHub creates a hub with an empty registry.
func NewHub(cfg Config, opts ...Option) *Hub {
	cfg.applyDefaults()
	h := &Hub{
		cfg:      cfg,
		registry: NewRegistry(),
		now:      time.Now,
		conns:    make(map[ConnID]*Connection),
		counters: make(map[models.Topic]*topicCounters, len(models.AllTopics)),
	}
	for _, t := range models.AllTopics {
		h.counters[t] = &topicCounters{}
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.now().UTC()
	return h
}

// Registry exposes the subscription index, for lifecycle listeners.
func (h *Hub) Registry() *Registry { return h.registry }

// Config returns the effective configuration.
func (h *Hub) Config() Config { return h.cfg }

// Closed reports whether the run loop has stopped.
func (h *Hub) Closed() bool { return h.closed.Load() }

// Publish validates payload, encodes the envelope once and enqueues it on
// every current subscriber of topic. A subscriber whose queue is full is
// disconnected. Publishing to a topic without subscribers is a no-op.
// System notices go to every live connection.
func (h *Hub) Publish(topic models.Topic, payload models.Payload, loc *models.Location) error {
	frame, err := h.encode(topic, payload, loc)
	if err != nil {
		metrics.RealtimePublishErrors.WithLabelValues(publishErrorTopic(topic), publishErrorReason(err)).Inc()
		return err
	}

	counters := h.counters[topic]
	counters.published.Add(1)
	metrics.RealtimePublished.WithLabelValues(string(topic)).Inc()

	var targets []*Connection
	if topic.Broadcast() {
		targets = h.liveConnections()
	} else {
		targets = h.lookup(h.registry.SubscribersOf(topic))
	}
	var delivered, dropped int
	for _, c := range targets {
		switch c.enqueue(frame) {
		case enqueued:
			delivered++
		case queueFull:
			dropped++
			logging.Warn().
				Uint64("conn_id", uint64(c.id)).
				Str("topic", string(topic)).
				Int("queue_depth", h.cfg.SendQueueDepth).
				Msg("Send queue full, disconnecting slow consumer")
			c.Close(ReasonSlowConsumer)
		}
	}

	if delivered > 0 {
		counters.delivered.Add(uint64(delivered))
		metrics.RealtimeDelivered.WithLabelValues(string(topic)).Add(float64(delivered))
	}
	if dropped > 0 {
		counters.dropped.Add(uint64(dropped))
		metrics.RealtimeDropped.WithLabelValues(string(topic)).Add(float64(dropped))
	}
	return nil
}

func (h *Hub) encode(topic models.Topic, payload models.Payload, loc *models.Location) ([]byte, error) {
	if !topic.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload for %s", ErrPayloadMismatch, topic)
	}
	if payload.Topic() != topic {
		return nil, fmt.Errorf("%w: %s payload published to %s", ErrPayloadMismatch, payload.Topic(), topic)
	}
	if verr := validation.ValidateStruct(payload); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, verr)
	}
	if loc != nil {
		if verr := validation.ValidateStruct(loc); verr != nil {
			return nil, fmt.Errorf("%w: location: %w", ErrInvalidPayload, verr)
		}
	}

	frame, err := MarshalMessage(&ServerMessage{
		Type:      string(topic),
		Timestamp: h.now().UTC(),
		Data:      payload,
		Location:  loc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return frame, nil
}

func publishErrorTopic(topic models.Topic) string {
	if topic.IsValid() {
		return string(topic)
	}
	return "unknown"
}

func publishErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTopic):
		return "unknown_topic"
	case errors.Is(err, ErrPayloadMismatch):
		return "payload_mismatch"
	case errors.Is(err, ErrInvalidPayload):
		return "validation"
	case errors.Is(err, ErrEncode):
		return "encode"
	}
	return "other"
}

// lookup resolves ids to live connections, keeping the order of ids.
func (h *Hub) lookup(ids []ConnID) []*Connection {
	if len(ids) == 0 {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Accept registers a connection over t, greets it and starts its reader and
// writer. The connection has no subscriptions until the client asks.
func (h *Hub) Accept(t Transport, info ConnInfo) (*Connection, error) {
	id := ConnID(h.nextID.Add(1))
	c := newConnection(id, h, t, info)

	// closed is only set under mu, so CloseAll's snapshot sees every
	// connection admitted here.
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		_ = t.Close()
		return nil, ErrHubClosed
	}
	h.conns[id] = c
	total := len(h.conns)
	metrics.RealtimeConnections.Inc()
	if h.observer != nil {
		h.observer.ConnectionOpened(id, c.info)
	}
	h.mu.Unlock()

	logging.Info().
		Uint64("conn_id", uint64(id)).
		Str("user", c.info.User).
		Str("remote_addr", c.info.RemoteAddr).
		Int("total_connections", total).
		Msg("Real-time client connected")

	c.start()
	h.sendTo(c, string(models.TopicSystem), &models.SystemData{
		Event:        SystemEventConnected,
		Message:      "connected to SARDIN-AI real-time feed",
		ConnectionID: strconv.FormatUint(uint64(id), 10),
		Topics:       models.AllTopics,
	})
	return c, nil
}

// detach removes c from the registry and the connection table. Called once,
// from Connection.Close.
func (h *Hub) detach(c *Connection, reason CloseReason) {
	topics := h.registry.RemoveConnection(c.id)

	h.mu.Lock()
	_, ok := h.conns[c.id]
	delete(h.conns, c.id)
	total := len(h.conns)
	h.mu.Unlock()
	if !ok {
		return
	}

	connected := h.now().Sub(c.connectedAt)
	metrics.RealtimeConnections.Dec()
	metrics.RealtimeConnectionsClosed.WithLabelValues(string(reason)).Inc()
	if h.observer != nil {
		h.observer.ConnectionClosed(c.id, c.info, reason, connected)
	}
	logging.Info().
		Uint64("conn_id", uint64(c.id)).
		Str("reason", string(reason)).
		Int("topics", len(topics)).
		Dur("connected_for", connected).
		Int("total_connections", total).
		Msg("Real-time client disconnected")
}

// sendTo enqueues a message addressed to one connection.
func (h *Hub) sendTo(c *Connection, msgType string, data interface{}) {
	frame, err := MarshalMessage(&ServerMessage{
		Type:      msgType,
		Timestamp: h.now().UTC(),
		Data:      data,
	})
	if err != nil {
		logging.Error().Err(err).Str("type", msgType).Msg("Failed to encode direct message")
		return
	}
	if c.enqueue(frame) == queueFull {
		c.Close(ReasonSlowConsumer)
	}
}

func (h *Hub) sendError(c *Connection, msg string) {
	h.sendTo(c, string(models.TopicSystem), &models.SystemData{
		Event:   SystemEventError,
		Message: msg,
	})
}

// handleClientMessage processes one inbound frame from c's reader.
func (h *Hub) handleClientMessage(c *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.RealtimeMessagesReceived.WithLabelValues("invalid").Inc()
		h.sendError(c, "invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		metrics.RealtimeMessagesReceived.WithLabelValues(msg.Type).Inc()
		h.handleSubscription(c, msg)

	case MessageTypeHeartbeat:
		metrics.RealtimeMessagesReceived.WithLabelValues(msg.Type).Inc()
		c.lastHeartbeatAt.Store(h.now().UnixNano())
		h.sendTo(c, MessageTypeHeartbeatResponse, &HeartbeatResponse{ClientTimestamp: msg.Timestamp})

	default:
		metrics.RealtimeMessagesReceived.WithLabelValues("unknown").Inc()
		h.sendError(c, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (h *Hub) handleSubscription(c *Connection, msg ClientMessage) {
	var req SubscriptionRequest
	if len(msg.Data) == 0 {
		h.sendError(c, msg.Type+" requires data.types")
		return
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(c, "invalid "+msg.Type+" data")
		return
	}

	var rejected []string
	open := c.whileOpen(func() {
		for _, name := range req.Types {
			topic, err := models.ParseTopic(name)
			if err != nil || topic.Broadcast() {
				rejected = append(rejected, name)
				continue
			}
			if msg.Type == MessageTypeSubscribe {
				h.registry.Subscribe(c.id, topic)
			} else {
				h.registry.Unsubscribe(c.id, topic)
			}
		}
	})
	if !open {
		return
	}

	logging.Debug().
		Uint64("conn_id", uint64(c.id)).
		Str("action", msg.Type).
		Strs("requested", req.Types).
		Strs("rejected", rejected).
		Msg("Subscription updated")

	h.sendTo(c, MessageTypeSubscriptionConfirmed, &SubscriptionConfirmation{
		Types:    h.registry.TopicsOf(c.id),
		Rejected: rejected,
	})
}

// SubscribersOf returns a sorted snapshot of topic's subscribers.
func (h *Hub) SubscribersOf(topic models.Topic) []ConnID {
	return h.registry.SubscribersOf(topic)
}

// Connection returns the live connection with id.
func (h *Hub) Connection(id ConnID) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Stats returns per-topic counters and subscriber counts.
func (h *Hub) Stats() Stats {
	s := Stats{
		Connections: h.ConnectionCount(),
		Topics:      make([]TopicStats, 0, len(models.AllTopics)),
		StartedAt:   h.startedAt,
	}
	for _, t := range models.AllTopics {
		c := h.counters[t]
		s.Topics = append(s.Topics, TopicStats{
			Topic:       t,
			Subscribers: h.subscriberCount(t),
			Published:   c.published.Load(),
			Delivered:   c.delivered.Load(),
			Dropped:     c.dropped.Load(),
		})
	}
	return s
}

// CloseAll closes every connection with reason and returns how many were
// closed.
func (h *Hub) CloseAll(reason CloseReason) int {
	conns := h.liveConnections()

	for _, c := range conns {
		if reason == ReasonShutdown {
			h.sendTo(c, string(models.TopicSystem), &models.SystemData{
				Event:   SystemEventServerShutdown,
				Message: "server is shutting down",
			})
		}
		c.Close(reason)
	}
	return len(conns)
}

// RunWithContext refreshes the subscriber gauges until ctx is done, then
// closes every connection and stops accepting new ones.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.StatsInterval)
	defer ticker.Stop()

	h.refreshGauges()
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.closed.Store(true)
			h.mu.Unlock()
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case <-ticker.C:
			h.refreshGauges()
		}
	}
}

func (h *Hub) refreshGauges() {
	for _, t := range models.AllTopics {
		metrics.RealtimeSubscribers.WithLabelValues(string(t)).Set(float64(h.subscriberCount(t)))
	}
}

// subscriberCount counts every live connection for broadcast topics.
func (h *Hub) subscriberCount(t models.Topic) int {
	if t.Broadcast() {
		return h.ConnectionCount()
	}
	return h.registry.SubscriberCount(t)
}

func (h *Hub) liveConnections() []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	return conns
}

// logGracefulShutdown closes all connections and logs the reason. The
// context error is not logged as an error; cancellation is the normal path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.CloseAll(ReasonShutdown)
	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("Real-time hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
