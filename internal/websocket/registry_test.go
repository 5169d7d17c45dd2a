// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"reflect"
	"sync"
	"testing"

	"github.com/tomtom215/sardinai/internal/models"
)

func TestRegistrySubscribeIdempotent(t *testing.T) {
	r := NewRegistry()

	if !r.Subscribe(1, models.TopicAlert) {
		t.Fatal("first Subscribe should report a change")
	}
	if r.Subscribe(1, models.TopicAlert) {
		t.Fatal("second Subscribe should be a no-op")
	}

	if got := r.SubscribersOf(models.TopicAlert); !reflect.DeepEqual(got, []ConnID{1}) {
		t.Errorf("SubscribersOf = %v, want [1]", got)
	}
	if got := r.TopicsOf(1); !reflect.DeepEqual(got, []models.Topic{models.TopicAlert}) {
		t.Errorf("TopicsOf = %v", got)
	}
}

func TestRegistryUnsubscribe(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(1, models.TopicVessel)

	if !r.Unsubscribe(1, models.TopicVessel) {
		t.Fatal("Unsubscribe should report a change")
	}
	if r.Unsubscribe(1, models.TopicVessel) {
		t.Fatal("second Unsubscribe should be a no-op")
	}
	if r.Unsubscribe(2, models.TopicAlert) {
		t.Fatal("Unsubscribe of unknown connection should be a no-op")
	}
	if n := r.SubscriberCount(models.TopicVessel); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
	if topics := r.Topics(); len(topics) != 0 {
		t.Errorf("Topics = %v, want none", topics)
	}
}

func TestRegistryRemoveConnection(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(1, models.TopicAlert)
	r.Subscribe(1, models.TopicOceanographic)
	r.Subscribe(2, models.TopicAlert)

	removed := r.RemoveConnection(1)
	want := []models.Topic{models.TopicAlert, models.TopicOceanographic}
	if !reflect.DeepEqual(removed, want) {
		t.Errorf("RemoveConnection = %v, want %v", removed, want)
	}
	if got := r.SubscribersOf(models.TopicAlert); !reflect.DeepEqual(got, []ConnID{2}) {
		t.Errorf("alert subscribers = %v, want [2]", got)
	}
	if got := r.TopicsOf(1); len(got) != 0 {
		t.Errorf("TopicsOf(1) after removal = %v", got)
	}
	if again := r.RemoveConnection(1); len(again) != 0 {
		t.Errorf("second RemoveConnection = %v, want empty", again)
	}
}

func TestRegistrySubscribersOfIsSortedCopy(t *testing.T) {
	r := NewRegistry()
	for _, id := range []ConnID{5, 3, 9, 1} {
		r.Subscribe(id, models.TopicPrediction)
	}

	got := r.SubscribersOf(models.TopicPrediction)
	if !reflect.DeepEqual(got, []ConnID{1, 3, 5, 9}) {
		t.Fatalf("SubscribersOf = %v", got)
	}

	got[0] = 42
	if again := r.SubscribersOf(models.TopicPrediction); again[0] != 1 {
		t.Error("mutating the snapshot changed the registry")
	}
}

func TestRegistryTopicListenerOrder(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(7, models.TopicAlert)

	type transition struct {
		topic  models.Topic
		active bool
	}
	var got []transition
	active := r.SetTopicListener(func(topic models.Topic, on bool) {
		got = append(got, transition{topic, on})
	})
	if !reflect.DeepEqual(active, []models.Topic{models.TopicAlert}) {
		t.Fatalf("SetTopicListener active = %v", active)
	}

	r.Subscribe(1, models.TopicVessel)   // vessel on
	r.Subscribe(2, models.TopicVessel)   // no transition
	r.Unsubscribe(1, models.TopicVessel) // no transition
	r.RemoveConnection(2)                // vessel off
	r.RemoveConnection(7)                // alert off
	r.Subscribe(3, models.TopicVessel)   // vessel on

	want := []transition{
		{models.TopicVessel, true},
		{models.TopicVessel, false},
		{models.TopicAlert, false},
		{models.TopicVessel, true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestRegistryConcurrentIndexConsistency(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id ConnID) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				topic := models.AllTopics[j%len(models.AllTopics)]
				if j%3 == 0 {
					r.Unsubscribe(id, topic)
				} else {
					r.Subscribe(id, topic)
				}
			}
			if id%2 == 0 {
				r.RemoveConnection(id)
			}
		}(ConnID(i))
	}
	wg.Wait()

	for _, topic := range models.AllTopics {
		for _, id := range r.SubscribersOf(topic) {
			found := false
			for _, ct := range r.TopicsOf(id) {
				if ct == topic {
					found = true
				}
			}
			if !found {
				t.Errorf("conn %d in %s index but topic missing from its set", id, topic)
			}
		}
	}
	for id := ConnID(0); id < 20; id++ {
		for _, topic := range r.TopicsOf(id) {
			found := false
			for _, sid := range r.SubscribersOf(topic) {
				if sid == id {
					found = true
				}
			}
			if !found {
				t.Errorf("conn %d lists %s but is not in its index", id, topic)
			}
		}
		if id%2 == 0 && len(r.TopicsOf(id)) != 0 {
			t.Errorf("removed conn %d still has topics", id)
		}
	}
}
