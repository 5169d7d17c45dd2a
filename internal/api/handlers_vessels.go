// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/sardinai/internal/models"
)

// nearbyRequest is validated with the same rules as payload locations.
type nearbyRequest struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lon" validate:"gte=-180,lte=180"`
	RadiusKm  float64 `json:"radius_km" validate:"gt=0,lte=500"`
}

// VesselsNearby lists tracked vessels within radius_km (default 25) of
// lat/lon, closest first.
//
// @Summary Vessels near a point
// @Description Lists tracked vessels within radius_km of lat/lon, closest first.
// @Tags Vessels
// @Produce json
// @Security BearerAuth
// @Param lat query number true "Latitude" minimum(-90) maximum(90)
// @Param lon query number true "Longitude" minimum(-180) maximum(180)
// @Param radius_km query number false "Search radius in km" default(25) maximum(500)
// @Success 200 {object} models.APIResponse{data=[]models.Vessel} "Vessels in range"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 401 {object} models.APIResponse "Invalid or missing token"
// @Failure 503 {object} models.APIResponse "Vessel tracking is not enabled"
// @Router /vessels/nearby [get]
func (h *Handler) VesselsNearby(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.vessels == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Vessel tracking is not enabled", nil)
		return
	}

	lat, okLat := getFloatParam(r, "lat")
	lon, okLon := getFloatParam(r, "lon")
	if !okLat || !okLon {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "lat and lon are required", nil)
		return
	}
	req := nearbyRequest{Latitude: lat, Longitude: lon, RadiusKm: 25}
	if radius, ok := getFloatParam(r, "radius_km"); ok {
		req.RadiusKm = radius
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	vessels := h.vessels.Nearby(req.Latitude, req.Longitude, req.RadiusKm)
	if vessels == nil {
		vessels = []models.Vessel{}
	}
	respondSuccess(w, http.StatusOK, vessels, start)
}
