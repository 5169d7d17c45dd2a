// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/sardinai/internal/models"
)

type alertOptions struct {
	Server         string
	Token          string
	Type           string
	Severity       string
	Message        string
	Lat, Lon       float64
	HasLocation    bool
	ActionRequired bool
	ExpiresIn      time.Duration
	Timeout        time.Duration
}

type alertResult struct {
	Topic       models.Topic `json:"topic"`
	Subscribers int          `json:"subscribers"`
}

func newAlertCmd() *cobra.Command {
	var opts alertOptions
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Push an operator alert",
		Long: `Publishes an alert through POST /api/v1/alerts. Every client subscribed to
the alert topic receives it immediately. Requires an operator token unless
the server runs with AUTH_MODE=none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Token, _ = cmd.Flags().GetString("token")
			opts.HasLocation = cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			res, err := runAlert(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alert published to %d subscriber(s)\n", res.Subscribers)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Server, "server", "http://localhost:3857", "SARDIN-AI server base URL")
	f.StringVar(&opts.Type, "type", "", "alert type, e.g. weather_warning")
	f.StringVar(&opts.Severity, "severity", string(models.SeverityMedium), "low, medium, high or critical")
	f.StringVar(&opts.Message, "message", "", "alert text")
	f.Float64Var(&opts.Lat, "lat", 0, "latitude the alert applies to")
	f.Float64Var(&opts.Lon, "lon", 0, "longitude the alert applies to")
	f.BoolVar(&opts.ActionRequired, "action-required", false, "mark the alert as requiring action")
	f.DurationVar(&opts.ExpiresIn, "expires-in", 0, "alert lifetime (0 means no expiry)")
	f.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func runAlert(ctx context.Context, opts alertOptions) (*alertResult, error) {
	alert := models.AlertData{
		Type:           opts.Type,
		Severity:       models.Severity(opts.Severity),
		Message:        opts.Message,
		ActionRequired: opts.ActionRequired,
	}
	if opts.HasLocation {
		alert.Location = &models.Location{Latitude: opts.Lat, Longitude: opts.Lon}
	}
	if opts.ExpiresIn > 0 {
		exp := time.Now().Add(opts.ExpiresIn).UTC()
		alert.ExpiresAt = &exp
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	endpoint := strings.TrimRight(opts.Server, "/") + "/api/v1/alerts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Data  alertResult      `json:"data"`
		Error *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusAccepted {
		if envelope.Error != nil {
			return nil, fmt.Errorf("server rejected alert (%s): %s: %s", resp.Status, envelope.Error.Code, envelope.Error.Message)
		}
		return nil, fmt.Errorf("server rejected alert: %s", resp.Status)
	}
	return &envelope.Data, nil
}
