// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package main provides the SARDIN-AI HTTP server
//
// @title SARDIN-AI Real-Time API
// @version 1.0
// @description Real-time distribution of oceanographic samples, sardine predictions, vessel positions and operator alerts to fisheries clients.
// @description
// @description ## Real-time feed
// @description
// @description Clients connect to `/ws` and subscribe to topics (`oceanographic`, `prediction`, `vessel`, `alert`).
// @description System notices reach every connection without a subscription.
// @description
// @description ## Authentication
// @description
// @description Operator endpoints require a JWT in the Authorization header.
// @description Obtain one from `/api/v1/auth/token` with HTTP Basic operator credentials.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-03-01T12:00:00Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/sardinai/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3857
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT as "Bearer <token>". Obtain via the /api/v1/auth/token endpoint.
//
// @tag.name Core
// @tag.description Health and readiness checks
//
// @tag.name Auth
// @tag.description Operator token issue
//
// @tag.name Realtime
// @tag.description Hub statistics, topic listing and operator alert push
//
// @tag.name Vessels
// @tag.description Tracked vessel queries
//
// @tag.name Audit
// @tag.description Audit trail of connections, subscriptions and publishes
package main
