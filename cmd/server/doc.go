// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package main is the SARDIN-AI real-time server.

It accepts WebSocket subscribers on /ws, fans oceanographic, prediction,
vessel and alert updates out to them by topic, and exposes a small REST
surface for operators (alert push, token issue, hub statistics, audit).

# Supervision

	sardinai
	├── data-layer
	│   └── audit-logger
	├── messaging-layer
	│   ├── broadcast-hub
	│   ├── nats-server       (NATS_EMBEDDED=true)
	│   └── feed-controller
	└── api-layer
	    └── http-server

Startup order:

 1. Configuration: koanf (defaults, config.yaml, environment)
 2. Logging: zerolog, bridged to slog for suture and watermill
 3. Audit store: badger at AUDIT_PATH, memory otherwise
 4. Broadcast hub with the audit observer
 5. Feed adapters and the lifecycle controller
 6. Authentication: HS256 JWT plus operator Basic credentials
 7. Chi router and HTTP server

# Configuration

	HTTP_PORT=3857
	LOG_LEVEL=info
	LOG_FORMAT=json

	AUTH_MODE=jwt                 # jwt or none
	JWT_SECRET=<32+ chars>
	ADMIN_USERNAME=operator
	ADMIN_PASSWORD=<8+ chars>
	CORS_ORIGINS=https://app.sardinai.example

	HEARTBEAT_INTERVAL=30s
	HEARTBEAT_TIMEOUT=10s
	WS_SEND_QUEUE_DEPTH=256

	FEED_LIFECYCLE_POLICY=on_demand   # or always
	VESSEL_SOURCE=synthetic           # or ais
	NATS_ENABLED=true
	NATS_EMBEDDED=true
	OCEAN_PROVIDER=synthetic          # noaa or cicese

	AUDIT_PATH=/data/audit

# API Documentation

Swagger documentation is served at /swagger/index.html. The document is
generated from the handler annotations into the docs package:

	swag init -g cmd/server/docs.go -o docs

SIGINT and SIGTERM cancel the tree; every subscriber receives a close frame
with reason shutdown before the process exits.
*/
package main
