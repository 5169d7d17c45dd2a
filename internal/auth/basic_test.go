// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package auth

import (
	"encoding/base64"
	"errors"
	"testing"
)

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestNewBasicAuthManagerValidation(t *testing.T) {
	if _, err := NewBasicAuthManager("", "longenough"); err == nil {
		t.Error("expected error for empty username")
	}
	if _, err := NewBasicAuthManager("admin", "short"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestBasicAuthManager(t *testing.T) {
	m, err := NewBasicAuthManager("admin", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Authenticate("admin", "correct-horse"); err != nil {
		t.Errorf("Authenticate: %v", err)
	}
	if err := m.Authenticate("admin", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if err := m.Authenticate("root", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong user err = %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"valid", basicHeader("admin", "correct-horse"), false},
		{"lowercase scheme", "basic " + basicHeader("admin", "correct-horse")[6:], false},
		{"bearer", "Bearer abc", true},
		{"bad base64", "Basic !!!", true},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("admin")), true},
		{"wrong password", basicHeader("admin", "nope-nope"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := m.ValidateCredentials(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && user != "admin" {
				t.Errorf("user = %q", user)
			}
		})
	}
}
