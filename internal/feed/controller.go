// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
)

// Lifecycle policies.
const (
	PolicyOnDemand = "on_demand"
	PolicyAlways   = "always"
)

// TopicWatcher reports topic activity transitions. *websocket.Registry
// implements it.
type TopicWatcher interface {
	// SetTopicListener installs fn and returns the topics active at that
	// moment. Passing nil removes the listener.
	SetTopicListener(fn func(topic models.Topic, active bool)) []models.Topic
}

type transition struct {
	topic  models.Topic
	active bool
}

// Controller starts and stops adapters according to the lifecycle policy.
// It is a suture service.
type Controller struct {
	policy   string
	watcher  TopicWatcher
	adapters map[models.Topic][]FeedAdapter
	order    []FeedAdapter

	mu      sync.Mutex
	pending []transition
	wake    chan struct{}
}

// NewController returns a controller for adapters. watcher may be nil when
// policy is always.
func NewController(policy string, watcher TopicWatcher, adapters ...FeedAdapter) (*Controller, error) {
	switch policy {
	case "":
		policy = PolicyOnDemand
	case PolicyOnDemand, PolicyAlways:
	default:
		return nil, fmt.Errorf("unknown lifecycle policy %q", policy)
	}
	if policy == PolicyOnDemand && watcher == nil {
		return nil, fmt.Errorf("lifecycle policy %s needs a topic watcher", policy)
	}

	c := &Controller{
		policy:   policy,
		watcher:  watcher,
		adapters: make(map[models.Topic][]FeedAdapter),
		wake:     make(chan struct{}, 1),
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		c.adapters[a.Topic()] = append(c.adapters[a.Topic()], a)
		c.order = append(c.order, a)
	}
	return c, nil
}

// Policy returns the active lifecycle policy.
func (c *Controller) Policy() string { return c.policy }

// Adapters returns the managed adapters in registration order.
func (c *Controller) Adapters() []FeedAdapter {
	out := make([]FeedAdapter, len(c.order))
	copy(out, c.order)
	return out
}

// String implements fmt.Stringer for suture logging.
func (c *Controller) String() string { return "feed-controller" }

// Serve runs until ctx is cancelled, then stops every adapter.
func (c *Controller) Serve(ctx context.Context) error {
	defer c.stopAll()

	if c.policy == PolicyAlways {
		for _, a := range c.order {
			c.start(a)
		}
		<-ctx.Done()
		return ctx.Err()
	}

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	active := c.watcher.SetTopicListener(c.enqueue)
	defer c.watcher.SetTopicListener(nil)

	for _, t := range active {
		c.apply(transition{topic: t, active: true})
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
			for _, tr := range c.drain() {
				c.apply(tr)
			}
		}
	}
}

// enqueue is the registry listener. It runs under the registry lock, so it
// only records the transition.
func (c *Controller) enqueue(topic models.Topic, active bool) {
	c.mu.Lock()
	c.pending = append(c.pending, transition{topic: topic, active: active})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) drain() []transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

func (c *Controller) apply(tr transition) {
	for _, a := range c.adapters[tr.topic] {
		if tr.active {
			c.start(a)
		} else {
			a.Stop()
		}
	}
}

func (c *Controller) start(a FeedAdapter) {
	if err := a.Start(); err != nil {
		logging.Error().Err(err).Str("adapter", a.Name()).Msg("Failed to start feed adapter")
	}
}

func (c *Controller) stopAll() {
	for _, a := range c.order {
		a.Stop()
	}
}
