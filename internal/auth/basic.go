// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any username/password mismatch.
var ErrInvalidCredentials = errors.New("invalid username or password")

// bcryptCost is the work factor for the operator password hash.
const bcryptCost = 12

// BasicAuthManager checks the single operator account. The password is
// hashed once at startup.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password with bcrypt.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// Authenticate compares the credentials in constant time. Both comparisons
// always run.
func (m *BasicAuthManager) Authenticate(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	if !usernameMatch || !passwordMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidateCredentials parses an "Authorization: Basic ..." header and
// returns the username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	const prefix = "Basic "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", errors.New("invalid authorization header format")
	}

	credentials, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
	if err != nil {
		return "", errors.New("failed to decode credentials")
	}

	username, password, ok := strings.Cut(string(credentials), ":")
	if !ok {
		return "", errors.New("invalid credentials format")
	}
	if err := m.Authenticate(username, password); err != nil {
		return "", err
	}
	return username, nil
}

// WWWAuthenticate is the challenge sent with 401 responses.
func (m *BasicAuthManager) WWWAuthenticate() string {
	return `Basic realm="SARDIN-AI", charset="UTF-8"`
}
