// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package api provides the HTTP surface of SARDIN-AI: the WebSocket upgrade
endpoint that hands connections to the broadcast hub, the operator REST
endpoints, health probes and the Prometheus scrape endpoint.

Routes:

	GET  /ws                          WebSocket upgrade (token via Bearer header or ?token=)
	POST /api/v1/auth/token           operator login (HTTP Basic) -> JWT
	POST /api/v1/alerts               publish an operator alert (operator role)
	GET  /api/v1/realtime/stats       hub counters
	GET  /api/v1/realtime/topics      topics with subscriber counts
	GET  /api/v1/vessels/nearby       tracked AIS vessels around a point
	GET  /api/v1/audit/recent         recent audit events (operator role)
	GET  /api/v1/health/live          liveness probe
	GET  /api/v1/health/ready         readiness probe
	GET  /metrics                     Prometheus metrics
	GET  /swagger/*                   Swagger UI and /swagger/doc.json

Every REST response uses the models.APIResponse envelope. Handlers carry
swag annotations; the generated document lives in the docs package and is
registered by importing it from the server binary.

Routing uses go-chi/chi/v5 with go-chi/cors for preflight handling and
go-chi/httprate for per-IP rate limiting.

Usage Example:

	h := api.NewHandler(api.Deps{Config: cfg, Hub: hub, JWT: jwtManager, Operator: basic, Audit: auditLogger})
	router := api.NewRouter(h, api.NewChiMiddlewareFromConfig(&cfg.Security), auth.NewMiddleware(jwtManager, cfg.Security.AuthMode))
	srv := &http.Server{Addr: ":3857", Handler: router.SetupChi()}
*/
package api
