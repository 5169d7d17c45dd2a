// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package services adapts SARDIN-AI components that do not already implement
suture.Service.

	HTTPServerService  *http.Server, ListenAndServe plus graceful Shutdown
	HubService         websocket.Hub.RunWithContext

The audit logger, feed controller and embedded NATS server expose
Serve(ctx) error directly and are added to the tree without a wrapper.

Usage:

	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
*/
package services
