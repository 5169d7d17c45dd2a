// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/sardinai/internal/audit"
	"github.com/tomtom215/sardinai/internal/auth"
	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/websocket"
)

// WebSocket upgrades the request and hands the connection to the hub. The
// handler returns immediately; the hub owns the connection from here on.
//
// @Summary Open the real-time feed
// @Description Upgrades to a WebSocket. Clients send subscribe and unsubscribe messages naming topics and receive matching updates plus system notices.
// @Tags Realtime
// @Produce json
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {string} string "Bad Request"
// @Failure 401 {object} models.APIResponse "Invalid or missing token"
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	rt := h.config.Realtime
	transport := websocket.NewGorillaTransport(conn, websocket.GorillaOptions{
		WriteWait:      rt.WriteWait,
		MaxMessageSize: rt.MaxMessageSize,
	})

	info := websocket.ConnInfo{RemoteAddr: audit.SourceFromRequest(r).IPAddress}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		info.User = claims.Username
	}

	if _, err := h.hub.Accept(transport, info); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Hub refused WebSocket connection")
		_ = transport.Close()
	}
}

// PublishAlert pushes an operator alert to every subscriber of the alert
// topic. The body is an AlertData object.
//
// @Summary Publish an operator alert
// @Description Validates the alert and fans it out to every subscriber of the alert topic. The publish is recorded in the audit trail.
// @Tags Realtime
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alert body models.AlertData true "Alert to publish"
// @Success 202 {object} models.APIResponse "Alert accepted with the current subscriber count"
// @Failure 400 {object} models.APIResponse "Invalid alert"
// @Failure 401 {object} models.APIResponse "Invalid or missing token"
// @Failure 403 {object} models.APIResponse "Operator role required"
// @Failure 500 {object} models.APIResponse "Publish failed"
// @Router /alerts [post]
func (h *Handler) PublishAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var alert models.AlertData
	if err := decodeJSON(w, r, &alert); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&alert); apiErr != nil {
		h.auditAlert(r, &alert, errors.New(apiErr.Message))
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if alert.ExpiresAt != nil && !alert.ExpiresAt.After(time.Now()) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "expires_at must be in the future", nil)
		return
	}

	err := h.hub.Publish(models.TopicAlert, &alert, alert.Location)
	h.auditAlert(r, &alert, err)
	if err != nil {
		if errors.Is(err, websocket.ErrInvalidPayload) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "PUBLISH_FAILED", "Failed to publish alert", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("alert_type", sanitizeLogValue(alert.Type)).
		Str("severity", string(alert.Severity)).
		Msg("Operator alert published")

	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"topic":       models.TopicAlert,
		"subscribers": len(h.hub.SubscribersOf(models.TopicAlert)),
	}, start)
}

func (h *Handler) auditAlert(r *http.Request, alert *models.AlertData, err error) {
	if h.audit == nil {
		return
	}
	actor := audit.SystemActor()
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		actor = audit.Actor{ID: claims.Username, Type: "operator", Name: claims.Username}
	}
	h.audit.LogAlertPublished(r.Context(), actor, audit.SourceFromRequest(r), alert, err)
}

// RealtimeStats returns the hub counters.
//
// @Summary Get hub statistics
// @Description Returns connection count and per-topic delivered, dropped and subscriber counters.
// @Tags Realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=websocket.Stats} "Hub statistics"
// @Failure 401 {object} models.APIResponse "Invalid or missing token"
// @Router /realtime/stats [get]
func (h *Handler) RealtimeStats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.hub.Stats(), time.Now())
}

// topicInfo is one row of the topics listing.
type topicInfo struct {
	Topic       models.Topic `json:"topic"`
	Subscribers int          `json:"subscribers"`
}

// RealtimeTopics lists every topic with its subscriber count.
//
// @Summary List topics
// @Description Returns every topic with its current subscriber count.
// @Tags Realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]topicInfo} "Topics"
// @Failure 401 {object} models.APIResponse "Invalid or missing token"
// @Router /realtime/topics [get]
func (h *Handler) RealtimeTopics(w http.ResponseWriter, r *http.Request) {
	stats := h.hub.Stats()
	topics := make([]topicInfo, 0, len(stats.Topics))
	for _, t := range stats.Topics {
		topics = append(topics, topicInfo{Topic: t.Topic, Subscribers: t.Subscribers})
	}
	respondSuccess(w, http.StatusOK, topics, time.Now())
}
