// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	_ "github.com/tomtom215/sardinai/docs" // Import generated swagger docs
	"github.com/tomtom215/sardinai/internal/api"
	"github.com/tomtom215/sardinai/internal/audit"
	"github.com/tomtom215/sardinai/internal/auth"
	"github.com/tomtom215/sardinai/internal/broker"
	"github.com/tomtom215/sardinai/internal/config"
	"github.com/tomtom215/sardinai/internal/feed"
	"github.com/tomtom215/sardinai/internal/logging"
	"github.com/tomtom215/sardinai/internal/models"
	"github.com/tomtom215/sardinai/internal/prediction"
	"github.com/tomtom215/sardinai/internal/supervisor"
	"github.com/tomtom215/sardinai/internal/supervisor/services"
	"github.com/tomtom215/sardinai/internal/websocket"
)

//nolint:gocyclo // sequential wiring
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("lifecycle_policy", cfg.Feeds.LifecyclePolicy).
		Str("vessel_source", cfg.Feeds.VesselSource).
		Msg("Starting SARDIN-AI real-time hub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === DATA LAYER ===

	auditStore, auditLogger, err := initAudit(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit store")
	}
	if auditStore != nil {
		defer func() {
			if err := auditStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit store")
			}
		}()
		tree.AddDataService(auditLogger)
	}

	// === MESSAGING LAYER ===

	var hubOpts []websocket.Option
	if auditLogger != nil {
		hubOpts = append(hubOpts, websocket.WithObserver(audit.NewHubObserver(auditLogger)))
	}
	hub := websocket.NewHub(websocket.Config{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Realtime.HeartbeatTimeout,
		SendQueueDepth:    cfg.Realtime.SendQueueDepth,
		DrainTimeout:      cfg.Realtime.DrainTimeout,
		StatsInterval:     cfg.Realtime.StatsInterval,
	}, hubOpts...)
	tree.AddMessagingService(services.NewHubService(hub))

	tracker := feed.NewVesselTracker(0)
	adapters, embedded, err := initFeeds(cfg, hub, tracker)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize feed adapters")
	}
	if embedded != nil {
		tree.AddMessagingService(embedded)
	}

	controller, err := feed.NewController(cfg.Feeds.LifecyclePolicy, hub.Registry(), adapters...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create feed controller")
	}
	tree.AddMessagingService(controller)
	logging.Info().Int("adapters", len(adapters)).Str("policy", controller.Policy()).Msg("Feed controller added to supervisor tree")

	// === AUTHENTICATION ===

	var jwtManager *auth.JWTManager
	var operator *auth.BasicAuthManager
	if cfg.AuthEnabled() {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")

		if cfg.Security.AdminUsername != "" {
			operator, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to initialize operator credentials")
			}
		} else {
			logging.Warn().Msg("ADMIN_USERNAME not set; POST /api/v1/auth/token is disabled")
		}
	} else {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none); every caller is treated as operator")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS_ORIGINS=* accepts WebSocket upgrades from any site")
			break
		}
	}

	// === API LAYER ===

	handler := api.NewHandler(api.Deps{
		Config:   cfg,
		Hub:      hub,
		JWT:      jwtManager,
		Operator: operator,
		Audit:    auditLogger,
		Vessels:  tracker,
		Checks:   readinessChecks(hub, auditStore, embedded),
	})
	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(&cfg.Security), auth.NewMiddleware(jwtManager, cfg.Security.AuthMode))

	// No read/write timeouts: upgraded connections keep the underlying
	// net.Conn and manage their own deadlines.
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("SARDIN-AI stopped")
}

// initAudit opens the audit store: badger when a path is configured,
// memory otherwise. Both return values are nil when auditing is disabled.
func initAudit(cfg *config.Config) (audit.Store, *audit.Logger, error) {
	if !cfg.Audit.Enabled {
		logging.Info().Msg("Audit logging disabled")
		return nil, nil, nil
	}

	var store audit.Store
	if cfg.Audit.Path != "" {
		bs, err := audit.OpenBadgerStore(audit.BadgerConfig{
			Path:      cfg.Audit.Path,
			Retention: cfg.Audit.Retention,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open audit store: %w", err)
		}
		store = bs
		logging.Info().Str("path", cfg.Audit.Path).Dur("retention", cfg.Audit.Retention).Msg("Audit logging with badger persistence")
	} else {
		store = audit.NewMemoryStore(0)
		logging.Info().Msg("Audit logging in memory (AUDIT_PATH not set)")
	}

	auditCfg := audit.DefaultConfig()
	auditCfg.BufferSize = cfg.Audit.BufferSize
	auditCfg.Retention = cfg.Audit.Retention
	return store, audit.NewLogger(store, auditCfg), nil
}

// initFeeds builds one adapter per topic. The vessel topic comes from AIS
// over NATS when configured, from the synthetic fleet otherwise. The
// returned broker is non-nil only when the embedded NATS server runs.
func initFeeds(cfg *config.Config, hub *websocket.Hub, tracker *feed.VesselTracker) ([]feed.FeedAdapter, *broker.EmbeddedServer, error) {
	fc := cfg.Feeds
	scorer := prediction.SardineScorer{}

	var ocean feed.Source = feed.NewOceanSampler(fc.Latitude, fc.Longitude)
	switch fc.OceanProvider {
	case config.OceanProviderNOAA:
		ocean = feed.NewNOAASource(feed.NOAAConfig{
			BaseURL:           cfg.NOAA.BaseURL,
			APIKey:            cfg.NOAA.APIKey,
			Latitude:          fc.Latitude,
			Longitude:         fc.Longitude,
			Timeout:           cfg.NOAA.Timeout,
			RequestsPerSecond: cfg.NOAA.RequestsPerSecond,
			CacheTTL:          cfg.NOAA.CacheTTL,
		}, ocean)
		logging.Info().Str("base_url", cfg.NOAA.BaseURL).Msg("NOAA oceanographic source enabled")
	case config.OceanProviderCICESE:
		ocean = feed.NewCICESESource(feed.CICESEConfig{
			BaseURL:           cfg.CICESE.BaseURL,
			APIKey:            cfg.CICESE.APIKey,
			Latitude:          fc.Latitude,
			Longitude:         fc.Longitude,
			Timeout:           cfg.CICESE.Timeout,
			RequestsPerSecond: cfg.CICESE.RequestsPerSecond,
			CacheTTL:          cfg.CICESE.CacheTTL,
		}, feed.NewCICESERegionalSampler(fc.Latitude, fc.Longitude))
		logging.Info().Str("base_url", cfg.CICESE.BaseURL).Msg("CICESE oceanographic source enabled")
	}

	adapters := []feed.FeedAdapter{
		feed.NewTickerAdapter(feed.TickerConfig{
			Name:     "oceanographic",
			Topic:    models.TopicOceanographic,
			Interval: fc.OceanographicInterval,
			Jitter:   fc.Jitter,
		}, ocean, hub),
		feed.NewTickerAdapter(feed.TickerConfig{
			Name:     "prediction",
			Topic:    models.TopicPrediction,
			Interval: fc.PredictionInterval,
			Jitter:   fc.Jitter,
		}, feed.NewPredictionSampler(fc.Latitude, fc.Longitude, scorer), hub),
		feed.NewTickerAdapter(feed.TickerConfig{
			Name:     "alert",
			Topic:    models.TopicAlert,
			Interval: fc.AlertInterval,
			Jitter:   fc.Jitter,
		}, feed.NewAlertSampler(fc.Latitude, fc.Longitude, scorer), hub),
	}

	if fc.VesselSource != config.VesselSourceAIS {
		adapters = append(adapters, feed.NewTickerAdapter(feed.TickerConfig{
			Name:     "vessel",
			Topic:    models.TopicVessel,
			Interval: fc.VesselInterval,
			Jitter:   fc.Jitter,
		}, feed.TrackVessels(feed.NewVesselSampler(fc.Latitude, fc.Longitude, fc.SyntheticVessels), tracker), hub))
		return adapters, nil, nil
	}

	var embedded *broker.EmbeddedServer
	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		srv, err := broker.NewEmbeddedServer(broker.Config{
			Host: cfg.NATS.EmbeddedHost,
			Port: cfg.NATS.EmbeddedPort,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		embedded = srv
		natsURL = srv.ClientURL()
	}

	sub, err := feed.NewNATSSubscriber(feed.NATSSubscriberConfig{
		URL:              natsURL,
		QueueGroup:       cfg.NATS.QueueGroup,
		SubscribersCount: cfg.NATS.SubscribersCount,
	}, watermill.NewSlogLogger(logging.NewSlogLogger()))
	if err != nil {
		if embedded != nil {
			embedded.Shutdown()
		}
		return nil, nil, fmt.Errorf("create AIS subscriber: %w", err)
	}

	adapters = append(adapters, feed.NewAISAdapter(feed.AISConfig{
		Name:          "ais",
		Subject:       cfg.NATS.AISSubject,
		FlushInterval: fc.VesselInterval,
		StaleAfter:    fc.VesselStaleAfter,
	}, sub, hub, tracker))
	logging.Info().Str("url", natsURL).Str("subject", cfg.NATS.AISSubject).Msg("AIS vessel feed enabled")
	return adapters, embedded, nil
}

func readinessChecks(hub *websocket.Hub, store audit.Store, embedded *broker.EmbeddedServer) map[string]api.ReadinessCheck {
	checks := map[string]api.ReadinessCheck{
		"hub": func(context.Context) error {
			if hub.Closed() {
				return websocket.ErrHubClosed
			}
			return nil
		},
	}
	if store != nil {
		checks["audit_store"] = func(ctx context.Context) error {
			_, err := store.Recent(ctx, audit.QueryFilter{Limit: 1})
			return err
		}
	}
	if embedded != nil {
		checks["nats"] = func(context.Context) error {
			if !embedded.IsRunning() {
				return errors.New("embedded NATS server is not running")
			}
			return nil
		}
	}
	return checks
}
