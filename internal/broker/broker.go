// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package broker runs an embedded NATS server so a single-node deployment
// can ingest AIS position reports without external infrastructure.
//
// Receivers publish AISReport JSON on the configured subject; the feed
// package's AIS adapter subscribes through watermill-nats.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/sardinai/internal/logging"
)

// Config configures the embedded server.
type Config struct {
	Host string
	// Port -1 picks a free port.
	Port         int
	MaxPayload   int32
	ReadyTimeout time.Duration
}

// EmbeddedServer wraps the NATS server with lifecycle management.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server. It returns
// once the server accepts connections.
func NewEmbeddedServer(cfg Config) (*EmbeddedServer, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = 1 << 20
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}

	opts := &server.Options{
		ServerName: "sardinai-ais",
		Host:       cfg.Host,
		Port:       cfg.Port,
		MaxPayload: cfg.MaxPayload,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	l := natsLogger{logging.WithComponent("nats")}
	ns.SetLogger(l, l.zl.GetLevel() <= zerolog.DebugLevel, false)

	go ns.Start()

	if !ns.ReadyForConnections(cfg.ReadyTimeout) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}

	s := &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}
	logging.Info().Str("url", s.clientURL).Msg("Embedded NATS server started")
	return s, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// Serve blocks until ctx is done and then shuts the server down, so the
// server's lifetime follows the supervisor tree.
func (s *EmbeddedServer) Serve(ctx context.Context) error {
	<-ctx.Done()
	s.Shutdown()
	logging.Info().Msg("Embedded NATS server stopped")
	return ctx.Err()
}

func (s *EmbeddedServer) String() string { return "nats-server" }

// natsLogger forwards nats-server logs to zerolog.
type natsLogger struct {
	zl zerolog.Logger
}

func (l natsLogger) Noticef(format string, v ...interface{}) { l.zl.Info().Msgf(format, v...) }
func (l natsLogger) Warnf(format string, v ...interface{})   { l.zl.Warn().Msgf(format, v...) }
func (l natsLogger) Fatalf(format string, v ...interface{})  { l.zl.Error().Msgf(format, v...) }
func (l natsLogger) Errorf(format string, v ...interface{})  { l.zl.Error().Msgf(format, v...) }
func (l natsLogger) Debugf(format string, v ...interface{})  { l.zl.Debug().Msgf(format, v...) }
func (l natsLogger) Tracef(format string, v ...interface{})  { l.zl.Trace().Msgf(format, v...) }
