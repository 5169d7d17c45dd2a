// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/sardinai/internal/auth"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/websocket"
)

func startServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

func readFrame(t *testing.T, conn *gorillaws.Conn) websocket.InboundMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg websocket.InboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func TestWebSocketAlertRoundTrip(t *testing.T) {
	f := newFixture(t)
	srv := startServer(t, f)

	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL(srv, f.token(t, auth.RoleViewer)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = resp.Body.Close()

	if greet := readFrame(t, conn); greet.Type != string(models.TopicSystem) {
		t.Fatalf("greeting type = %q", greet.Type)
	}

	data, _ := json.Marshal(websocket.SubscriptionRequest{Types: []string{"alert"}})
	if err := conn.WriteJSON(websocket.ClientMessage{Type: websocket.MessageTypeSubscribe, Data: data}); err != nil {
		t.Fatal(err)
	}
	if confirm := readFrame(t, conn); confirm.Type != websocket.MessageTypeSubscriptionConfirmed {
		t.Fatalf("confirmation type = %q", confirm.Type)
	}

	body, _ := json.Marshal(models.AlertData{
		Type:     "fishing_opportunity",
		Severity: models.SeverityMedium,
		Message:  "High sardine probability near the shelf break",
		Location: &models.Location{Latitude: 32.6, Longitude: -117.4},
	})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/alerts", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+f.token(t, auth.RoleOperator))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("publish status = %d", res.StatusCode)
	}

	msg := readFrame(t, conn)
	if msg.Type != string(models.TopicAlert) || msg.Location == nil || msg.Location.Latitude != 32.6 {
		t.Fatalf("frame = %+v", msg)
	}
	var alert models.AlertData
	if err := json.Unmarshal(msg.Data, &alert); err != nil {
		t.Fatal(err)
	}
	if alert.Type != "fishing_opportunity" {
		t.Errorf("alert = %+v", alert)
	}

	conns := f.hub.Stats().Connections
	if conns != 1 {
		t.Errorf("connections = %d, want 1", conns)
	}
}

func TestWebSocketHandshakeRejections(t *testing.T) {
	f := newFixture(t)
	srv := startServer(t, f)

	tests := []struct {
		name   string
		token  string
		origin string
		status int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"bad token", "junk", "", http.StatusUnauthorized},
		{"foreign origin", f.token(t, auth.RoleViewer), "https://evil.example", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL(srv, tt.token), header)
			if err == nil {
				conn.Close()
				t.Fatal("handshake succeeded")
			}
			if resp == nil {
				t.Fatalf("no HTTP response: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	// An allowed browser origin passes.
	header := http.Header{"Origin": []string{"https://app.sardinai.example"}}
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL(srv, f.token(t, auth.RoleViewer)), header)
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	_ = resp.Body.Close()
	conn.Close()
}
