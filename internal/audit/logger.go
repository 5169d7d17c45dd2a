// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/metrics"
	"github.com/tomtom215/sardinai/internal/models"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool

	// BufferSize is the size of the async write buffer.
	BufferSize int

	// Retention is how long events are kept. Cleanup runs in Serve.
	Retention time.Duration

	// CleanupInterval is how often Serve runs retention cleanup.
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		BufferSize:      1000,
		Retention:       30 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Logger is the asynchronous audit sink. Log never blocks: when the buffer
// is full the event is dropped and counted.
type Logger struct {
	config    Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLogger creates a new audit logger and starts its writer.
func NewLogger(store Store, config Config) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// asyncWriter processes events from the buffer.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining events
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log records an audit event.
func (l *Logger) Log(event *Event) {
	if !l.config.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
	default:
		metrics.AuditEventsDropped.Inc()
		logging.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("Audit event buffer full, dropping event")
	}
}

// Recent queries the store.
func (l *Logger) Recent(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Recent(ctx, filter)
}

// Serve runs retention cleanup until ctx is done, then flushes the buffer.
// It is a suture service.
func (l *Logger) Serve(ctx context.Context) error {
	defer l.Close()

	if l.config.Retention <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.cleanup(ctx)
		}
	}
}

func (l *Logger) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-l.config.Retention)
	count, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
		return
	}
	if count > 0 {
		logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
	}
	if gc, ok := l.store.(interface{ RunGC() error }); ok {
		if err := gc.RunGC(); err != nil {
			logging.Warn().Err(err).Msg("Audit value log GC failed")
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (l *Logger) String() string { return "audit-logger" }

// Close stops the writer after draining the buffer. The store stays open.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
	})
	l.wg.Wait()
	return nil
}

// LogAlertPublished records an operator alert pushed through the API.
func (l *Logger) LogAlertPublished(ctx context.Context, actor Actor, source Source, alert *models.AlertData, err error) {
	event := &Event{
		Type:        EventTypeAlertPublished,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "publish",
		Description: "Operator alert published: " + alert.Type,
		Metadata: mustJSON(map[string]interface{}{
			"alert_type":      alert.Type,
			"alert_severity":  alert.Severity,
			"action_required": alert.ActionRequired,
		}),
		RequestID: logging.RequestIDFromContext(ctx),
	}
	if err != nil {
		event.Severity = SeverityWarning
		event.Outcome = OutcomeFailure
		event.Description = "Operator alert rejected: " + err.Error()
	}
	l.Log(event)
}

// LogAuthSuccess logs a successful operator login.
func (l *Logger) LogAuthSuccess(ctx context.Context, username string, source Source) {
	l.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: username, Type: "operator", Name: username},
		Source:      source,
		Action:      "authenticate",
		Description: "Operator authenticated",
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogAuthFailure logs a failed operator login.
func (l *Logger) LogAuthFailure(ctx context.Context, username string, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{ID: username, Type: "operator", Name: username},
		Source:      source,
		Action:      "authenticate",
		Description: "Authentication failed: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// mustJSON converts a value to JSON, returning empty object on error.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SourceFromRequest creates a Source from an HTTP request.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = strings.TrimSpace(strings.Split(xff, ",")[0])
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		ip = xri
	} else if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return Source{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// SystemActor returns an Actor representing the server itself.
func SystemActor() Actor {
	return Actor{
		ID:   "system",
		Type: "system",
		Name: "SARDIN-AI",
	}
}
