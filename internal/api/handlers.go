// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/sardinai/internal/audit"
	"github.com/tomtom215/sardinai/internal/auth"
	"github.com/tomtom215/sardinai/internal/config"
	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/websocket"
)

// Version is reported by the health endpoints. Overridden at link time.
var Version = "dev"

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// VesselLocator answers proximity queries over tracked vessels.
// *feed.VesselTracker implements it.
type VesselLocator interface {
	Nearby(lat, lon, radiusKm float64) []models.Vessel
}

// Deps are the handler's collaborators. Hub and Config are required; the
// rest may be nil and their endpoints answer 503.
type Deps struct {
	Config   *config.Config
	Hub      *websocket.Hub
	JWT      *auth.JWTManager
	Operator *auth.BasicAuthManager
	Audit    *audit.Logger
	Vessels  VesselLocator
	Checks   map[string]ReadinessCheck
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_realtime.go: WebSocket upgrade, alert publish, hub stats
//   - handlers_auth.go: operator token issue
//   - handlers_audit.go: audit log query
//   - handlers_vessels.go: vessel proximity query
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	config    *config.Config
	hub       *websocket.Hub
	jwt       *auth.JWTManager
	operator  *auth.BasicAuthManager
	audit     *audit.Logger
	vessels   VesselLocator
	checks    map[string]ReadinessCheck
	upgrader  gorillaws.Upgrader
	startTime time.Time
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		config:    deps.Config,
		hub:       deps.Hub,
		jwt:       deps.JWT,
		operator:  deps.Operator,
		audit:     deps.Audit,
		vessels:   deps.Vessels,
		checks:    deps.Checks,
		startTime: time.Now(),
	}
	rt := deps.Config.Realtime
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:   rt.ReadBufferSize,
		WriteBufferSize:  rt.WriteBufferSize,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// checkWebSocketOrigin validates the Origin header against the CORS list.
// Requests without Origin come from non-browser clients such as sardinctl
// and are allowed; they still need a token when auth is enabled.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
