// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package supervisor runs every long-lived SARDIN-AI service under a suture v4
tree.

# Layout

	sardinai
	├── data-layer
	│   └── audit-logger
	├── messaging-layer
	│   ├── nats-server       (embedded broker, when enabled)
	│   ├── broadcast-hub
	│   └── feed-controller   (ticker, NOAA/CICESE and AIS adapters)
	└── api-layer
	    └── http-server

Each layer restarts its own children. A feed adapter that keeps failing
backs off inside the messaging layer while the HTTP listener stays up.

# Logging

Supervisor events (service panics, restarts, backoff) go through sutureslog
into the slog logger passed to NewSupervisorTree; main hands it the zerolog
bridge from the logging package so the events share the process log stream.

# Shutdown

Canceling the context passed to Serve stops the tree. Each service gets
TreeConfig.ShutdownTimeout; services that overrun it are listed by
UnstoppedServiceReport.
*/
package supervisor
