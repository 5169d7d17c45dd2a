// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

/*
Package auth authenticates operators and realtime clients.

Operators exchange the configured admin credentials for an HS256 session
token at POST /api/v1/auth/token. The token is then presented either as an
"Authorization: Bearer" header or, for WebSocket handshakes where browsers
cannot set headers, as the "token" query parameter.

Key Components:

  - JWTManager: token issue and validation (golang-jwt/jwt/v5)
  - BasicAuthManager: bcrypt-hashed operator password check
  - Middleware: chi-compatible authentication and role checks

With AUTH_MODE=none every request is treated as the anonymous operator.

Usage Example:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)
	r.With(mw.Authenticate, mw.RequireRole(auth.RoleOperator)).Post("/alerts", h.PublishAlert)
*/
package auth
