// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package websocket implements the real-time fan-out of SARDIN-AI data to
connected clients.

Components:

  - Registry: topic -> connection index kept consistent with each
    connection's own topic set
  - Hub: the single publish entry point; validates, encodes once and fans
    out to a snapshot of the subscribers
  - Connection: one client's bounded send queue, writer and reader
    goroutines and heartbeat state machine
  - Transport: the minimal capability set the hub needs from a socket;
    GorillaTransport adapts gorilla/websocket

Backpressure:

Publish never blocks on a client. Each connection owns a bounded queue; when
a publish finds it full the connection is closed with reason slow_consumer
and the per-topic drop counter is incremented. Other subscribers of the same
publish are unaffected.

Ordering:

Frames are written in enqueue order by one writer goroutine per connection,
so a single publisher's envelopes reach each subscriber in publish order for
a given topic. Nothing is promised across topics.

Wire protocol:

	client -> server  {"type":"subscribe","data":{"types":["alert","vessel"]}}
	client -> server  {"type":"heartbeat","timestamp":"2026-03-01T12:00:00Z"}
	server -> client  {"type":"alert","timestamp":"...","data":{...}}
	server -> client  {"type":"subscription-confirmed","timestamp":"...","data":{"types":["alert"]}}
	server -> client  {"type":"heartbeat_response","timestamp":"...","data":{...}}

Usage:

	hub := websocket.NewHub(websocket.DefaultConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	// in the HTTP handler, after the upgrade
	hub.Accept(websocket.NewGorillaTransport(conn, opts), websocket.ConnInfo{User: user})

	// anywhere else
	err := hub.Publish(models.TopicAlert, alert, nil)
*/
package websocket
