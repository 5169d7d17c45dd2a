// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"sort"
	"sync"

	"github.com/tomtom215/sardinai/internal/models"
)

// ConnID identifies a connection for the lifetime of the process.
type ConnID uint64

// TopicListener is told when a topic gains its first subscriber
// (active=true) or loses its last one (active=false). It is called with the
// registry lock held, in mutation order, and must not block or call back
// into the registry.
type TopicListener = func(topic models.Topic, active bool)

// Registry is the subscription index. byTopic and byConn always describe the
// same relation: id is in byTopic[t] exactly when t is in byConn[id].
type Registry struct {
	mu       sync.RWMutex
	byTopic  map[models.Topic]map[ConnID]struct{}
	byConn   map[ConnID]map[models.Topic]struct{}
	listener TopicListener
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTopic: make(map[models.Topic]map[ConnID]struct{}),
		byConn:  make(map[ConnID]map[models.Topic]struct{}),
	}
}

// SetTopicListener installs l and returns the topics that are active at
// that instant, so the caller can seed its state without missing a
// transition.
func (r *Registry) SetTopicListener(l TopicListener) []models.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
	return r.activeTopicsLocked()
}

// Subscribe adds id to topic. It returns false when id was already
// subscribed, in which case nothing changes.
func (r *Registry) Subscribe(id ConnID, topic models.Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.byTopic[topic]
	if _, ok := subs[id]; ok {
		return false
	}
	if subs == nil {
		subs = make(map[ConnID]struct{})
		r.byTopic[topic] = subs
	}
	subs[id] = struct{}{}

	topics := r.byConn[id]
	if topics == nil {
		topics = make(map[models.Topic]struct{})
		r.byConn[id] = topics
	}
	topics[topic] = struct{}{}

	if len(subs) == 1 && r.listener != nil {
		r.listener(topic, true)
	}
	return true
}

// Unsubscribe removes id from topic. It returns false when id was not
// subscribed.
func (r *Registry) Unsubscribe(id ConnID, topic models.Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeLocked(id, topic)
}

func (r *Registry) unsubscribeLocked(id ConnID, topic models.Topic) bool {
	subs := r.byTopic[topic]
	if _, ok := subs[id]; !ok {
		return false
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(r.byTopic, topic)
		if r.listener != nil {
			r.listener(topic, false)
		}
	}

	if topics := r.byConn[id]; topics != nil {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(r.byConn, id)
		}
	}
	return true
}

// RemoveConnection drops id from every topic and returns the topics it was
// subscribed to, sorted.
func (r *Registry) RemoveConnection(id ConnID) []models.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := sortedTopics(r.byConn[id])
	for _, t := range removed {
		r.unsubscribeLocked(id, t)
	}
	delete(r.byConn, id)
	return removed
}

// SubscribersOf returns a sorted copy of topic's subscribers. The caller
// may iterate it while the registry keeps changing.
func (r *Registry) SubscribersOf(topic models.Topic) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byTopic[topic]
	ids := make([]ConnID, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TopicsOf returns the topics id is subscribed to, sorted.
func (r *Registry) TopicsOf(id ConnID) []models.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedTopics(r.byConn[id])
}

// SubscriberCount returns the number of subscribers of topic.
func (r *Registry) SubscriberCount(topic models.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTopic[topic])
}

// Topics returns the topics with at least one subscriber, sorted.
func (r *Registry) Topics() []models.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeTopicsLocked()
}

func (r *Registry) activeTopicsLocked() []models.Topic {
	topics := make([]models.Topic, 0, len(r.byTopic))
	for t := range r.byTopic {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

func sortedTopics(set map[models.Topic]struct{}) []models.Topic {
	topics := make([]models.Topic, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}
