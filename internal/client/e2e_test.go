// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/websocket"
)

// hubServer serves hub connections over a real WebSocket endpoint.
func hubServer(t *testing.T, hub *websocket.Hub) string {
	t.Helper()
	upgrader := gorillaws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		tr := websocket.NewGorillaTransport(conn, websocket.GorillaOptions{})
		if _, err := hub.Accept(tr, websocket.ConnInfo{RemoteAddr: r.RemoteAddr}); err != nil {
			_ = tr.Close()
		}
	}))
	t.Cleanup(func() {
		hub.CloseAll(websocket.ReasonServerClose)
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func startClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{URL: url, BaseDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func awaitConfirmation(t *testing.T, ch <-chan Message, topic models.Topic) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-ch:
			var conf websocket.SubscriptionConfirmation
			if err := m.Decode(&conf); err != nil {
				t.Fatal(err)
			}
			for _, got := range conf.Types {
				if got == topic {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no confirmation for %s", topic)
		}
	}
}

func TestAlertReachesOnlySubscribedClient(t *testing.T) {
	hub := websocket.NewHub(websocket.DefaultConfig())
	url := hubServer(t, hub)

	c1, c2 := startClient(t, url), startClient(t, url)

	c1Alerts := make(chan Message, 4)
	c1Confirm := make(chan Message, 4)
	c1.Subscribe(string(models.TopicAlert), func(m Message) { c1Alerts <- m })
	c1.Subscribe(websocket.MessageTypeSubscriptionConfirmed, func(m Message) { c1Confirm <- m })

	c2Any := make(chan Message, 16)
	c2Confirm := make(chan Message, 4)
	c2.Subscribe(Wildcard, func(m Message) {
		if m.Type == string(models.TopicAlert) {
			c2Any <- m
		}
	})
	c2.Subscribe(string(models.TopicOceanographic), func(Message) {})
	c2.Subscribe(websocket.MessageTypeSubscriptionConfirmed, func(m Message) { c2Confirm <- m })

	if err := c1.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c2.Start(); err != nil {
		t.Fatal(err)
	}
	awaitConfirmation(t, c1Confirm, models.TopicAlert)
	awaitConfirmation(t, c2Confirm, models.TopicOceanographic)

	sent := &models.AlertData{
		Type:           "weather_warning",
		Severity:       models.SeverityHigh,
		Message:        "Storm",
		ActionRequired: true,
	}
	if err := hub.Publish(models.TopicAlert, sent, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-c1Alerts:
		p, err := m.Payload()
		if err != nil {
			t.Fatal(err)
		}
		got := p.(*models.AlertData)
		if got.Type != sent.Type || got.Severity != sent.Severity || got.Message != sent.Message || !got.ActionRequired {
			t.Errorf("received %+v, want %+v", got, sent)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("subscribed client did not receive the alert")
	}

	select {
	case m := <-c1Alerts:
		t.Errorf("alert delivered twice: %s", m.Data)
	case m := <-c2Any:
		t.Errorf("unsubscribed client received %s", m.Data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientReconnectsAfterServerDrop(t *testing.T) {
	hub := websocket.NewHub(websocket.DefaultConfig())
	url := hubServer(t, hub)

	c := startClient(t, url)
	confirms := make(chan Message, 8)
	c.Subscribe(string(models.TopicVessel), func(Message) {})
	c.Subscribe(websocket.MessageTypeSubscriptionConfirmed, func(m Message) { confirms <- m })
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	awaitConfirmation(t, confirms, models.TopicVessel)

	if n := hub.CloseAll(websocket.ReasonServerClose); n != 1 {
		t.Fatalf("closed %d connections, want 1", n)
	}

	// The client comes back on its own and restores the subscription.
	awaitConfirmation(t, confirms, models.TopicVessel)
	deadline := time.Now().Add(3 * time.Second)
	for len(hub.SubscribersOf(models.TopicVessel)) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("resubscription not visible in the registry")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !c.Status().Connected() {
		t.Errorf("status = %+v", c.Status())
	}
}
