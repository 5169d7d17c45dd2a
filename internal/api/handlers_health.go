// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
)

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// HealthLive returns 200 while the process is alive, regardless of
// dependencies.
//
// @Summary Liveness check
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus} "Process is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:      "alive",
		Version:     Version,
		Uptime:      time.Since(h.startTime).Seconds(),
		Connections: h.hub.ConnectionCount(),
	}, time.Now())
}

// HealthReady returns 200 only when every registered dependency check
// passes, 503 otherwise.
//
// @Summary Readiness check
// @Description Runs every dependency check with a two second timeout each.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus} "All dependencies ready"
// @Failure 503 {object} models.APIResponse{data=models.HealthStatus} "A dependency check failed"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]any, len(names))
	ready := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			ready = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	status := models.HealthStatus{
		Status:      "ready",
		Version:     Version,
		Uptime:      time.Since(h.startTime).Seconds(),
		Connections: h.hub.ConnectionCount(),
		Checks:      checks,
	}
	if !ready {
		status.Status = "not_ready"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: "SERVICE_UNAVAILABLE", Message: "Service is not ready"},
		})
		return
	}
	respondSuccess(w, http.StatusOK, status, start)
}
