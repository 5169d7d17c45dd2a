// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/sardinai/internal/client"
	"github.com/tomtom215/sardinai/internal/models"
)

type tailOptions struct {
	URL         string
	Topics      []string
	Token       string
	MaxAttempts int
	BaseDelay   time.Duration
	System      bool
}

// tailLine is one line of tail output.
type tailLine struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Location  *models.Location `json:"location,omitempty"`
}

func newTailCmd() *cobra.Command {
	var opts tailOptions
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream topic updates as JSON lines",
		Long: `Connects to the hub, subscribes to the given topics and prints every
update as one JSON object per line. The connection is re-established with
exponential backoff; the command exits non-zero once the attempts run out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Token, _ = cmd.Flags().GetString("token")
			return runTail(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.URL, "url", "ws://localhost:3857/ws", "hub WebSocket URL")
	cmd.Flags().StringSliceVar(&opts.Topics, "topics", []string{string(models.TopicAlert)}, "topics to subscribe to")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 5, "reconnect attempts before giving up")
	cmd.Flags().DurationVar(&opts.BaseDelay, "base-delay", time.Second, "first reconnect delay")
	cmd.Flags().BoolVar(&opts.System, "system", false, "also print system notices and confirmations")
	return cmd
}

func runTail(ctx context.Context, out io.Writer, opts tailOptions) error {
	topics, err := parseTopics(opts.Topics)
	if err != nil {
		return err
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	gaveUp := make(chan client.Status, 1)
	c, err := client.New(client.Config{
		URL:                  opts.URL,
		Header:               header,
		BaseDelay:            opts.BaseDelay,
		MaxReconnectAttempts: opts.MaxAttempts,
	}, client.WithStatusListener(func(s client.Status) {
		if s.Failed {
			select {
			case gaveUp <- s:
			default:
			}
		}
	}))
	if err != nil {
		return err
	}
	defer c.Close()

	var mu sync.Mutex
	enc := json.NewEncoder(out)
	emit := func(m client.Message) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(tailLine{Type: m.Type, Timestamp: m.Timestamp, Data: m.Data, Location: m.Location})
	}

	subscribed := make(map[string]bool, len(topics))
	for _, t := range topics {
		subscribed[string(t)] = true
		c.Subscribe(string(t), emit)
	}
	if opts.System {
		c.Subscribe(client.Wildcard, func(m client.Message) {
			if !subscribed[m.Type] {
				emit(m)
			}
		})
	}

	if err := c.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case s := <-gaveUp:
		return fmt.Errorf("gave up after %d reconnect attempts: %s", s.MaxAttempts, s.LastError)
	}
}

func parseTopics(raw []string) ([]models.Topic, error) {
	var topics []models.Topic
	for _, r := range raw {
		for _, name := range strings.Split(r, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			t, err := models.ParseTopic(name)
			if err != nil {
				return nil, err
			}
			if t == models.TopicSystem {
				return nil, errors.New("system notices are always delivered; use --system to print them")
			}
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}
	return topics, nil
}
