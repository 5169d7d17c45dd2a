// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/sardinai/internal/auth"
	"github.com/tomtom215/sardinai/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          *auth.Middleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, chiMiddleware *ChiMiddleware, authMiddleware *auth.Middleware) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMiddleware,
		auth:          authMiddleware,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to every route, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)
	r.Use(router.chiMiddleware.CORS())

	requireOperator := router.auth.RequireRole(auth.RoleOperator)

	// Real-time feed. Authentication runs before the upgrade so a bad token
	// fails the handshake with 401.
	r.With(
		router.chiMiddleware.RateLimitCustom(RateLimitWebSocket),
		router.auth.Authenticate,
	).Get("/ws", router.handler.WebSocket)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).
		Post("/api/v1/auth/token", router.handler.IssueToken)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.auth.Authenticate)

		r.Get("/realtime/stats", router.handler.RealtimeStats)
		r.Get("/realtime/topics", router.handler.RealtimeTopics)
		r.Get("/vessels/nearby", router.handler.VesselsNearby)

		r.With(requireOperator, router.chiMiddleware.RateLimitCustom(RateLimitWrite)).
			Post("/alerts", router.handler.PublishAlert)
		r.With(requireOperator).Get("/audit/recent", router.handler.AuditRecent)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
