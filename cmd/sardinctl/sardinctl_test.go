// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func hubURL(t *testing.T, hub *websocket.Hub, wantToken string) string {
	t.Helper()
	upgrader := gorillaws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantToken != "" && r.Header.Get("Authorization") != "Bearer "+wantToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
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

func TestParseTopics(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []models.Topic
		wantErr bool
	}{
		{"single", []string{"alert"}, []models.Topic{models.TopicAlert}, false},
		{"comma list", []string{"alert, vessel"}, []models.Topic{models.TopicAlert, models.TopicVessel}, false},
		{"repeated flag", []string{"oceanographic", "prediction"}, []models.Topic{models.TopicOceanographic, models.TopicPrediction}, false},
		{"unknown", []string{"weather"}, nil, true},
		{"system rejected", []string{"system"}, nil, true},
		{"empty", []string{" , "}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTopics(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("topic[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTailPrintsSubscribedTopic(t *testing.T) {
	hub := websocket.NewHub(websocket.DefaultConfig())
	url := hubURL(t, hub, "s3cret")

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runTail(ctx, out, tailOptions{
			URL:         url,
			Topics:      []string{"alert"},
			Token:       "s3cret",
			MaxAttempts: 3,
			BaseDelay:   10 * time.Millisecond,
		})
	}()

	deadline := time.Now().Add(3 * time.Second)
	for len(hub.SubscribersOf(models.TopicAlert)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("tail never subscribed to alert")
		}
		time.Sleep(10 * time.Millisecond)
	}

	loc := &models.Location{Latitude: 32.7, Longitude: -117.2}
	if err := hub.Publish(models.TopicAlert, &models.AlertData{
		Type:     "weather_warning",
		Severity: models.SeverityHigh,
		Message:  "Gale warning",
		Location: loc,
	}, loc); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	_ = hub.Publish(models.TopicVessel, &models.VesselData{}, nil)

	for !strings.Contains(out.String(), "\n") {
		if time.Now().After(deadline) {
			t.Fatal("no output line")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("runTail: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), out.String())
	}
	var line tailLine
	if err := json.Unmarshal([]byte(lines[0]), &line); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if line.Type != "alert" || line.Location == nil || line.Location.Latitude != 32.7 {
		t.Errorf("unexpected line: %+v", line)
	}
	var alert models.AlertData
	if err := json.Unmarshal(line.Data, &alert); err != nil || alert.Message != "Gale warning" {
		t.Errorf("data = %s (%v)", line.Data, err)
	}
}

func TestTailGivesUpWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runTail(ctx, io.Discard, tailOptions{
		URL:         url,
		Topics:      []string{"vessel"},
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})
	if err == nil || !strings.Contains(err.Error(), "gave up after 2") {
		t.Fatalf("runTail = %v, want give-up error", err)
	}
}

func TestRunAlert(t *testing.T) {
	var got models.AlertData
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/alerts" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		if got.Message == "reject me" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":"error","data":null,"error":{"code":"FORBIDDEN","message":"operator role required"}}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"success","data":{"topic":"alert","subscribers":3}}`))
	}))
	defer srv.Close()

	res, err := runAlert(context.Background(), alertOptions{
		Server:         srv.URL + "/",
		Token:          "tok",
		Type:           "fishing_opportunity",
		Severity:       "medium",
		Message:        "Sardine school at the canyon edge",
		Lat:            32.6,
		Lon:            -117.4,
		HasLocation:    true,
		ActionRequired: true,
		ExpiresIn:      time.Hour,
		Timeout:        time.Second,
	})
	if err != nil {
		t.Fatalf("runAlert: %v", err)
	}
	if res.Subscribers != 3 || res.Topic != models.TopicAlert {
		t.Errorf("result = %+v", res)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Location == nil || got.Location.Latitude != 32.6 || !got.ActionRequired {
		t.Errorf("sent alert = %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.After(time.Now()) {
		t.Errorf("expires_at = %v, want future", got.ExpiresAt)
	}

	_, err = runAlert(context.Background(), alertOptions{
		Server:   srv.URL,
		Type:     "x",
		Severity: "low",
		Message:  "reject me",
	})
	if err == nil || !strings.Contains(err.Error(), "FORBIDDEN") {
		t.Errorf("runAlert = %v, want FORBIDDEN", err)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"tail", "alert"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (%v)", name, err)
		}
	}
	if root.PersistentFlags().Lookup("token") == nil {
		t.Error("--token flag missing")
	}

	root.SetArgs([]string{"alert", "--message", "no type"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Error("alert without --type should fail")
	}
}
