// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package api

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/sardinai/internal/audit"
	"github.com/tomtom215/sardinai/internal/auth"
	"github.com/tomtom215/sardinai/internal/models"
)

// IssueToken exchanges HTTP Basic operator credentials for a JWT.
//
// @Summary Issue an operator token
// @Description Exchanges HTTP Basic operator credentials for a signed JWT.
// @Tags Auth
// @Produce json
// @Param Authorization header string true "Basic credentials"
// @Success 200 {object} models.APIResponse{data=models.TokenResponse} "Token issued"
// @Failure 401 {object} models.APIResponse "Invalid username or password"
// @Failure 403 {object} models.APIResponse "Authentication is disabled"
// @Router /auth/token [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.jwt == nil || h.operator == nil {
		respondError(w, http.StatusForbidden, "AUTH_DISABLED", "Authentication is disabled", nil)
		return
	}

	authHeader := r.Header.Get("Authorization")
	username, err := h.operator.ValidateCredentials(authHeader)
	if err != nil {
		if h.audit != nil {
			h.audit.LogAuthFailure(r.Context(), basicUsername(authHeader), audit.SourceFromRequest(r), err.Error())
		}
		w.Header().Set("WWW-Authenticate", h.operator.WWWAuthenticate())
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
		return
	}

	token, expiresAt, err := h.jwt.GenerateToken(username, auth.RoleOperator)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate authentication token", err)
		return
	}
	if h.audit != nil {
		h.audit.LogAuthSuccess(r.Context(), username, audit.SourceFromRequest(r))
	}

	respondSuccess(w, http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  username,
		Role:      auth.RoleOperator,
	}, start)
}

// basicUsername extracts the claimed username for the audit log without
// validating anything.
func basicUsername(header string) string {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return ""
	}
	user, _, _ := strings.Cut(string(raw), ":")
	return sanitizeLogValue(user)
}
