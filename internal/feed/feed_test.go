// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/validation"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

type published struct {
	topic   models.Topic
	payload models.Payload
	loc     *models.Location
}

// recordingPublisher validates like the hub and keeps every publish.
type recordingPublisher struct {
	mu   sync.Mutex
	got  []published
	ch   chan published
	fail error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{ch: make(chan published, 64)}
}

func (p *recordingPublisher) Publish(topic models.Topic, payload models.Payload, loc *models.Location) error {
	if p.fail != nil {
		return p.fail
	}
	if verr := validation.ValidateStruct(payload); verr != nil {
		return verr
	}
	rec := published{topic: topic, payload: payload, loc: loc}
	p.mu.Lock()
	p.got = append(p.got, rec)
	p.mu.Unlock()
	select {
	case p.ch <- rec:
	default:
	}
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func (p *recordingPublisher) next(t *testing.T) published {
	t.Helper()
	select {
	case rec := <-p.ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}
	return published{}
}
