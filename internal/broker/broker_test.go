// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package broker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/sardinai/internal/feed"
	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type snapshotPublisher struct {
	ch chan *models.VesselData
}

func (p *snapshotPublisher) Publish(topic models.Topic, payload models.Payload, _ *models.Location) error {
	if topic == models.TopicVessel {
		p.ch <- payload.(*models.VesselData)
	}
	return nil
}

func startServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	s, err := NewEmbeddedServer(Config{Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func TestEmbeddedServerServeStopsOnCancel(t *testing.T) {
	s, err := NewEmbeddedServer(Config{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsRunning() || s.ClientURL() == "" {
		t.Fatalf("running=%v url=%q", s.IsRunning(), s.ClientURL())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if s.IsRunning() {
		t.Error("server still running after Serve returned")
	}
}

func TestAISReportsFlowThroughEmbeddedServer(t *testing.T) {
	s := startServer(t)

	sub, err := feed.NewNATSSubscriber(feed.NATSSubscriberConfig{
		URL:              s.ClientURL(),
		QueueGroup:       "sardinai",
		SubscribersCount: 1,
	}, watermill.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sub.Close() })

	pub := &snapshotPublisher{ch: make(chan *models.VesselData, 16)}
	adapter := feed.NewAISAdapter(feed.AISConfig{
		Subject:       "ais.test",
		FlushInterval: 50 * time.Millisecond,
	}, sub, pub, nil)
	if err := adapter.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(adapter.Stop)

	nc, err := natsgo.Connect(s.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(nc.Close)

	report, err := json.Marshal(feed.AISReport{MMSI: 224123456, Name: "ALBORAN", Lat: 32.6, Lon: -117.4, SOG: 8.5, COG: 45})
	if err != nil {
		t.Fatal(err)
	}

	// Core NATS drops messages published before the subscription reaches
	// the server, so keep publishing until a snapshot arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case snap := <-pub.ch:
			if len(snap.Vessels) != 1 || snap.Vessels[0].ID != "224123456" || snap.Vessels[0].Name != "ALBORAN" {
				t.Fatalf("snapshot = %+v", snap.Vessels)
			}
			return
		case <-tick.C:
			if err := nc.Publish("ais.test", report); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no vessel snapshot received")
		}
	}
}
