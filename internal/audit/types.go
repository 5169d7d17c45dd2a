// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Real-time connection events
	EventTypeConnectionOpened EventType = "connection.opened"
	EventTypeConnectionClosed EventType = "connection.closed"
	EventTypeSlowConsumer     EventType = "connection.slow_consumer"

	// Operator events
	EventTypeAlertPublished EventType = "alert.published"
	EventTypeAuthSuccess    EventType = "auth.success"
	EventTypeAuthFailure    EventType = "auth.failure"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audit record.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Severity    Severity        `json:"severity"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Source      Source          `json:"source"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Actor is who performed the action: an operator, a real-time client or
// the system itself.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Source is where the request came from.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save persists an audit event.
	Save(ctx context.Context, event *Event) error

	// Recent returns events matching filter, newest first.
	Recent(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Delete removes events older than olderThan and returns how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)

	// Close releases the store.
	Close() error
}

// QueryFilter narrows Recent.
type QueryFilter struct {
	Types []EventType `json:"types,omitempty"`
	Since *time.Time  `json:"since,omitempty"`
	Limit int         `json:"limit,omitempty"`
}

// DefaultQueryLimit is used when QueryFilter.Limit is not positive.
const DefaultQueryLimit = 100

func (f *QueryFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}

func (f *QueryFilter) matches(e *Event) bool {
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}
