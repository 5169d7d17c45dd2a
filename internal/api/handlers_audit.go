// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/sardinai/internal/audit"
)

// maxAuditLimit caps a single audit query.
const maxAuditLimit = 1000

// AuditRecent returns recent audit events, newest first.
//
// Query parameters: limit (default 100, max 1000), type (comma separated
// event types), since (RFC3339).
//
// @Summary Recent audit events
// @Description Returns audit events newest first.
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum events (1-1000)" default(100) minimum(1) maximum(1000)
// @Param type query string false "Comma-separated event types" example("alert.published,auth.failure")
// @Param since query string false "Only events after this time (RFC3339)" example("2026-03-01T00:00:00Z")
// @Success 200 {object} models.APIResponse{data=[]audit.Event} "Audit events"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 401 {object} models.APIResponse "Invalid or missing token"
// @Failure 403 {object} models.APIResponse "Operator role required"
// @Failure 503 {object} models.APIResponse "Audit logging is disabled"
// @Router /audit/recent [get]
func (h *Handler) AuditRecent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Audit logging is disabled", nil)
		return
	}

	filter := audit.QueryFilter{Limit: getIntParam(r, "limit", audit.DefaultQueryLimit)}
	if filter.Limit <= 0 || filter.Limit > maxAuditLimit {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 1000", nil)
		return
	}
	if types := r.URL.Query().Get("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, audit.EventType(t))
			}
		}
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "since must be an RFC3339 timestamp", nil)
			return
		}
		filter.Since = &ts
	}

	events, err := h.audit.Recent(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to query audit log", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	respondSuccess(w, http.StatusOK, events, start)
}
