// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package websocket

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/validation"
)

func stormAlert() *models.AlertData {
	return &models.AlertData{
		Type:           "weather_warning",
		Severity:       models.SeverityHigh,
		Message:        "Storm",
		ActionRequired: true,
	}
}

func oceanSample() *models.OceanographicData {
	return &models.OceanographicData{
		SeaSurfaceTemp:   18.75,
		Chlorophyll:      0.75,
		Salinity:         34.2,
		CurrentSpeed:     0.5,
		CurrentDirection: 90,
		WindSpeed:        6,
		WindDirection:    180,
	}
}

func TestNewHubDefaults(t *testing.T) {
	h := NewHub(Config{})
	cfg := h.Config()
	if cfg.HeartbeatInterval != 30*time.Second || cfg.HeartbeatTimeout != 10*time.Second {
		t.Errorf("heartbeat defaults = %v/%v", cfg.HeartbeatInterval, cfg.HeartbeatTimeout)
	}
	if cfg.SendQueueDepth != 256 {
		t.Errorf("SendQueueDepth = %d, want 256", cfg.SendQueueDepth)
	}
	if h.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d, want 0", h.ConnectionCount())
	}
}

func TestAcceptGreetsWithConnectionID(t *testing.T) {
	h := testHub(t, DefaultConfig())
	ft := newFakeTransport()
	c, err := h.Accept(ft, ConnInfo{User: "skipper"})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	m := ft.next(t)
	var sys models.SystemData
	if err := json.Unmarshal(m.Data, &sys); err != nil {
		t.Fatalf("decode greeting: %v", err)
	}
	if sys.Event != SystemEventConnected {
		t.Errorf("event = %q, want connected", sys.Event)
	}
	if sys.ConnectionID != strconv.FormatUint(uint64(c.ID()), 10) {
		t.Errorf("connection_id = %q, want %d", sys.ConnectionID, c.ID())
	}
	if len(sys.Topics) != len(models.AllTopics) {
		t.Errorf("topics = %v", sys.Topics)
	}
	if c.State() != StateOpen {
		t.Errorf("state = %s, want open", c.State())
	}
	if c.Info().User != "skipper" || c.Info().RemoteAddr != "fake:0" {
		t.Errorf("info = %+v", c.Info())
	}
}

// Every subscriber gets exactly one copy, nobody else gets any.
func TestPublishFanOut(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, ocean := acceptFake(t, h)
	_, alerts := acceptFake(t, h)
	_, both := acceptFake(t, h)

	ocean.subscribe(t, "oceanographic")
	alerts.subscribe(t, "alert")
	both.subscribe(t, "oceanographic", "alert")

	if err := h.Publish(models.TopicOceanographic, oceanSample(), &models.Location{Latitude: 32.5, Longitude: -117.5}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for name, ft := range map[string]*fakeTransport{"ocean": ocean, "both": both} {
		m := ft.next(t)
		if m.Type != string(models.TopicOceanographic) {
			t.Errorf("%s got type %q", name, m.Type)
		}
		if m.Location == nil || m.Location.Latitude != 32.5 {
			t.Errorf("%s location = %+v", name, m.Location)
		}
		if m.Timestamp.IsZero() {
			t.Errorf("%s timestamp not set", name)
		}
		ft.expectNone(t, 50*time.Millisecond)
	}
	alerts.expectNone(t, 50*time.Millisecond)

	st := topicStats(h, models.TopicOceanographic)
	if st.Published != 1 || st.Delivered != 2 || st.Dropped != 0 || st.Subscribers != 2 {
		t.Errorf("oceanographic stats = %+v", st)
	}
}

// A repeated subscribe leaves one registry entry and one delivery.
func TestSubscribeTwiceDeliversOnce(t *testing.T) {
	h := testHub(t, DefaultConfig())
	c, ft := acceptFake(t, h)

	ft.subscribe(t, "alert")
	conf := ft.subscribe(t, "alert")
	if len(conf.Types) != 1 || conf.Types[0] != models.TopicAlert {
		t.Errorf("confirmed types = %v", conf.Types)
	}

	subs := h.SubscribersOf(models.TopicAlert)
	if len(subs) != 1 || subs[0] != c.ID() {
		t.Fatalf("SubscribersOf = %v, want [%d]", subs, c.ID())
	}

	if err := h.Publish(models.TopicAlert, stormAlert(), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ft.next(t)
	ft.expectNone(t, 50*time.Millisecond)
}

func TestSubscribeRejectsUnknownTopics(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, ft := acceptFake(t, h)

	conf := ft.subscribe(t, "alert", "weather", "*")
	if len(conf.Types) != 1 || conf.Types[0] != models.TopicAlert {
		t.Errorf("types = %v", conf.Types)
	}
	if len(conf.Rejected) != 2 {
		t.Errorf("rejected = %v, want [weather *]", conf.Rejected)
	}
}

// A subscriber that stops reading is disconnected; the others keep
// receiving every message.
func TestSlowConsumerIsolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendQueueDepth = 4
	h := testHub(t, cfg)

	slowConn, slow := acceptFake(t, h)
	_, fast := acceptFake(t, h)
	slow.subscribe(t, "alert")
	fast.subscribe(t, "alert")
	slow.block()

	for i := 0; i < 20; i++ {
		a := stormAlert()
		a.Message = "msg " + strconv.Itoa(i)
		if err := h.Publish(models.TopicAlert, a, nil); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
		fast.next(t)
	}

	waitClosed(t, slowConn, time.Second)
	if r := slowConn.CloseReason(); r != ReasonSlowConsumer {
		t.Errorf("close reason = %q, want slow_consumer", r)
	}
	for _, id := range h.SubscribersOf(models.TopicAlert) {
		if id == slowConn.ID() {
			t.Error("slow consumer still subscribed")
		}
	}
	if st := topicStats(h, models.TopicAlert); st.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", st.Dropped)
	}
	select {
	case <-slow.closed:
	case <-time.After(time.Second):
		t.Error("slow consumer transport not closed")
	}
}

// A single subscriber sees one publisher's messages in publish order.
func TestPublishOrderPreserved(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, ft := acceptFake(t, h)
	ft.subscribe(t, "alert")

	const n = 100
	for i := 0; i < n; i++ {
		a := stormAlert()
		a.Message = strconv.Itoa(i)
		if err := h.Publish(models.TopicAlert, a, nil); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		m := ft.next(t)
		var a models.AlertData
		if err := json.Unmarshal(m.Data, &a); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if a.Message != strconv.Itoa(i) {
			t.Fatalf("message %d arrived as %q", i, a.Message)
		}
	}
}

// A peer that never answers pings is removed within timeout + interval.
func TestHeartbeatTimeoutRemovesConnection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.HeartbeatTimeout = 30 * time.Millisecond
	h := testHub(t, cfg)

	c, ft := acceptFake(t, h)
	ft.subscribe(t, "oceanographic", "alert")

	// One ping after interval, close after timeout; allow scheduling slack.
	waitClosed(t, c, cfg.HeartbeatInterval+cfg.HeartbeatTimeout+200*time.Millisecond)

	if r := c.CloseReason(); r != ReasonHeartbeatTimeout {
		t.Errorf("close reason = %q, want heartbeat_timeout", r)
	}
	if ft.pings.Load() == 0 {
		t.Error("no ping was sent")
	}
	for _, topic := range models.AllTopics {
		if subs := h.SubscribersOf(topic); len(subs) != 0 {
			t.Errorf("%s still has subscribers %v", topic, subs)
		}
	}
	if h.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d", h.ConnectionCount())
	}
}

func TestHeartbeatKeepsResponsivePeer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 20 * time.Millisecond
	cfg.HeartbeatTimeout = 30 * time.Millisecond
	h := testHub(t, cfg)

	ft := newFakeTransport()
	ft.autoPong.Store(true)
	c, err := h.Accept(ft, ConnInfo{})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if c.State() != StateOpen {
		t.Fatalf("state = %s, reason %q", c.State(), c.CloseReason())
	}
	if ft.pings.Load() < 2 {
		t.Errorf("pings = %d, want at least 2", ft.pings.Load())
	}
	if since := time.Since(c.LastHeartbeatAt()); since > 100*time.Millisecond {
		t.Errorf("last heartbeat %v ago", since)
	}
}

func TestClientHeartbeatAnswered(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, ft := acceptFake(t, h)

	ft.deliver(t, ClientMessage{Type: MessageTypeHeartbeat, Timestamp: "2026-03-01T12:00:00Z"})
	m := ft.nextOfType(t, MessageTypeHeartbeatResponse)

	var resp HeartbeatResponse
	if err := json.Unmarshal(m.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ClientTimestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("client_timestamp = %q", resp.ClientTimestamp)
	}
}

func TestUnknownClientMessageGetsSystemError(t *testing.T) {
	h := testHub(t, DefaultConfig())
	c, ft := acceptFake(t, h)

	tests := []struct {
		name  string
		frame []byte
	}{
		{"unknown type", []byte(`{"type":"dance"}`)},
		{"not json", []byte(`{{{`)},
		{"subscribe without data", []byte(`{"type":"subscribe"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft.inbound <- tt.frame
			m := ft.next(t)
			var sys models.SystemData
			if err := json.Unmarshal(m.Data, &sys); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if m.Type != string(models.TopicSystem) || sys.Event != SystemEventError {
				t.Errorf("got %s/%s, want system error", m.Type, sys.Event)
			}
		})
	}
	if c.State() != StateOpen {
		t.Errorf("protocol errors must not close the connection, state = %s", c.State())
	}
}

func TestPublishRejectsBeforeFanOut(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, ft := acceptFake(t, h)
	ft.subscribe(t, "alert", "oceanographic")

	badLat := &models.Location{Latitude: 95, Longitude: 0}

	tests := []struct {
		name    string
		topic   models.Topic
		payload models.Payload
		loc     *models.Location
		want    error
	}{
		{"unknown topic", "weather", stormAlert(), nil, ErrUnknownTopic},
		{"nil payload", models.TopicAlert, nil, nil, ErrPayloadMismatch},
		{"variant mismatch", models.TopicAlert, oceanSample(), nil, ErrPayloadMismatch},
		{"missing message", models.TopicAlert, &models.AlertData{Type: "x", Severity: models.SeverityLow}, nil, ErrInvalidPayload},
		{"bad severity", models.TopicAlert, &models.AlertData{Type: "x", Severity: "apocalyptic", Message: "m"}, nil, ErrInvalidPayload},
		{"bad location", models.TopicAlert, stormAlert(), badLat, ErrInvalidPayload},
		{"NaN reading", models.TopicOceanographic, &models.OceanographicData{SeaSurfaceTemp: math.NaN()}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Publish(tt.topic, tt.payload, tt.loc)
			if err == nil {
				t.Fatal("Publish succeeded, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	ft.expectNone(t, 50*time.Millisecond)
	if st := topicStats(h, models.TopicAlert); st.Published != 0 {
		t.Errorf("rejected publishes counted: %+v", st)
	}
}

func TestPublishValidationErrorCarriesFields(t *testing.T) {
	h := testHub(t, DefaultConfig())
	err := h.Publish(models.TopicVessel, &models.VesselData{Vessels: []models.Vessel{{ID: "a"}, {Latitude: 10}}}, nil)

	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not a RequestValidationError", err)
	}
	fields := verr.Fields()
	if len(fields) != 1 || fields[0].Field != "vessels[1].id" {
		t.Errorf("fields = %+v", fields)
	}
}

// The subscriber receives exactly the published object; a
// non-subscriber receives nothing.
func TestAlertReachesOnlySubscriber(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, c1 := acceptFake(t, h)
	_, c2 := acceptFake(t, h)
	c1.subscribe(t, "alert")
	c2.subscribe(t, "vessel")

	if err := h.Publish(models.TopicAlert, stormAlert(), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	m := c1.next(t)
	var got models.AlertData
	if err := json.Unmarshal(m.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := *stormAlert()
	if got.Type != want.Type || got.Severity != want.Severity || got.Message != want.Message || got.ActionRequired != want.ActionRequired {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
	if got.Location != nil || got.ExpiresAt != nil {
		t.Errorf("unexpected optional fields: %+v", got)
	}
	c1.expectNone(t, 50*time.Millisecond)
	c2.expectNone(t, 50*time.Millisecond)
}

// Unsubscribe stops delivery for publishes that start after it.
func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, c1 := acceptFake(t, h)
	c1.subscribe(t, "oceanographic")
	conf := c1.unsubscribe(t, "oceanographic")
	if len(conf.Types) != 0 {
		t.Errorf("types after unsubscribe = %v", conf.Types)
	}

	if err := h.Publish(models.TopicOceanographic, oceanSample(), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	c1.expectNone(t, 50*time.Millisecond)
}

// Publishing to a topic nobody follows succeeds quietly.
func TestPublishWithoutSubscribers(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, idle := acceptFake(t, h)

	err := h.Publish(models.TopicVessel, &models.VesselData{Vessels: []models.Vessel{{ID: "367001230", Latitude: 32.7, Longitude: -117.2}}}, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	idle.expectNone(t, 50*time.Millisecond)

	st := topicStats(h, models.TopicVessel)
	if st.Published != 1 || st.Delivered != 0 || st.Dropped != 0 {
		t.Errorf("vessel stats = %+v", st)
	}
}

// A write failure on one subscriber removes it without
// affecting the other.
func TestWriteFailureIsolated(t *testing.T) {
	h := testHub(t, DefaultConfig())
	broken, c1 := acceptFake(t, h)
	_, c2 := acceptFake(t, h)
	c1.subscribe(t, "prediction")
	c2.subscribe(t, "prediction")
	c1.failSend.Store(true)

	p := &models.PredictionData{
		SardineProbability: 0.8,
		Confidence:         0.9,
		OptimalZones:       []models.OptimalZone{{Latitude: 32.5, Longitude: -117.5, Radius: 5, Probability: 0.8}},
		MigrationPattern:   models.MigrationPattern{Direction: "north", Speed: 2.5, Confidence: 0.7},
	}
	if err := h.Publish(models.TopicPrediction, p, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if m := c2.next(t); m.Type != string(models.TopicPrediction) {
		t.Errorf("c2 got %q", m.Type)
	}
	waitClosed(t, broken, time.Second)
	if r := broken.CloseReason(); r != ReasonWriteError {
		t.Errorf("close reason = %q, want write_error", r)
	}
	for _, id := range h.SubscribersOf(models.TopicPrediction) {
		if id == broken.ID() {
			t.Error("failed connection still subscribed")
		}
	}
}

func TestPeerCloseRemovesConnection(t *testing.T) {
	h := testHub(t, DefaultConfig())
	c, ft := acceptFake(t, h)
	ft.subscribe(t, "alert")

	_ = ft.Close()
	waitClosed(t, c, time.Second)
	c.Wait()

	if r := c.CloseReason(); r != ReasonClientClosed {
		t.Errorf("close reason = %q, want client_closed", r)
	}
	if c.State() != StateClosed {
		t.Errorf("state = %s, want closed", c.State())
	}
	if h.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d", h.ConnectionCount())
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	opened []ConnID
	closed map[ConnID]CloseReason
}

func (o *recordingObserver) ConnectionOpened(id ConnID, _ ConnInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, id)
}

func (o *recordingObserver) ConnectionClosed(id ConnID, _ ConnInfo, reason CloseReason, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed[id] = reason
}

func TestRunWithContextShutsDownConnections(t *testing.T) {
	obs := &recordingObserver{closed: make(map[ConnID]CloseReason)}
	h := NewHub(DefaultConfig(), WithObserver(obs))

	c, ft := acceptFake(t, h)
	ft.subscribe(t, "alert")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return")
	}

	// The shutdown notice is drained before the socket closes.
	m := ft.nextOfType(t, string(models.TopicSystem))
	var sys models.SystemData
	_ = json.Unmarshal(m.Data, &sys)
	if sys.Event != SystemEventServerShutdown {
		t.Errorf("last notice = %q, want server_shutdown", sys.Event)
	}
	c.Wait()
	if r := c.CloseReason(); r != ReasonShutdown {
		t.Errorf("close reason = %q", r)
	}

	if _, err := h.Accept(newFakeTransport(), ConnInfo{}); !errors.Is(err, ErrHubClosed) {
		t.Errorf("Accept after shutdown = %v, want ErrHubClosed", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.opened) != 1 || obs.closed[c.ID()] != ReasonShutdown {
		t.Errorf("observer opened=%v closed=%v", obs.opened, obs.closed)
	}
}

func TestConcurrentPublishAndChurn(t *testing.T) {
	h := testHub(t, DefaultConfig())
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.Publish(models.TopicAlert, stormAlert(), nil)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ft := newFakeTransport()
			c, err := h.Accept(ft, ConnInfo{})
			if err != nil {
				return
			}
			data, _ := json.Marshal(SubscriptionRequest{Types: []string{"alert"}})
			b, _ := json.Marshal(ClientMessage{Type: MessageTypeSubscribe, Data: data})
			ft.inbound <- b
			time.Sleep(5 * time.Millisecond)
			c.Close(ReasonServerClose)
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(time.Second)
	for h.ConnectionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := h.ConnectionCount(); n != 0 {
		t.Errorf("ConnectionCount = %d after churn", n)
	}
	if subs := h.SubscribersOf(models.TopicAlert); len(subs) != 0 {
		t.Errorf("alert subscribers left: %v", subs)
	}
}

func topicStats(h *Hub, topic models.Topic) TopicStats {
	for _, st := range h.Stats().Topics {
		if st.Topic == topic {
			return st
		}
	}
	return TopicStats{}
}

func TestSystemNoticeReachesEveryConnection(t *testing.T) {
	h := testHub(t, DefaultConfig())
	_, quiet := acceptFake(t, h)
	_, alerts := acceptFake(t, h)
	alerts.subscribe(t, "alert")

	conf := quiet.subscribe(t, "system")
	if len(conf.Types) != 0 || len(conf.Rejected) != 1 || conf.Rejected[0] != "system" {
		t.Fatalf("subscribe system: types=%v rejected=%v", conf.Types, conf.Rejected)
	}
	if subs := h.SubscribersOf(models.TopicSystem); len(subs) != 0 {
		t.Errorf("SubscribersOf(system) = %v, want none", subs)
	}

	notice := &models.SystemData{Event: "maintenance", Message: "feeds paused for 5 minutes"}
	if err := h.Publish(models.TopicSystem, notice, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for name, ft := range map[string]*fakeTransport{"quiet": quiet, "alerts": alerts} {
		m := ft.nextOfType(t, string(models.TopicSystem))
		var sys models.SystemData
		if err := json.Unmarshal(m.Data, &sys); err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if sys.Event != "maintenance" {
			t.Errorf("%s event = %q, want maintenance", name, sys.Event)
		}
	}

	st := topicStats(h, models.TopicSystem)
	if st.Delivered != 2 || st.Subscribers != 2 {
		t.Errorf("system stats = %+v", st)
	}
}

func TestShutdownClosesConnectionsAcceptedConcurrently(t *testing.T) {
	h := NewHub(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()

	var (
		mu       sync.Mutex
		accepted []*Connection
		wg       sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c, err := h.Accept(newFakeTransport(), ConnInfo{User: "crew"})
				if errors.Is(err, ErrHubClosed) {
					return
				}
				mu.Lock()
				accepted = append(accepted, c)
				mu.Unlock()
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
	wg.Wait()

	for _, c := range accepted {
		waitClosed(t, c, 2*time.Second)
	}
	if n := h.ConnectionCount(); n != 0 {
		t.Errorf("ConnectionCount after shutdown = %d, want 0", n)
	}
}
