// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/vpnwatch/internal/api"
	"github.com/tomtom215/vpnwatch/internal/config"
	"github.com/tomtom215/vpnwatch/internal/events"
	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/store"
	"github.com/tomtom215/vpnwatch/internal/supervisor"
	"github.com/tomtom215/vpnwatch/internal/supervisor/services"
	"github.com/tomtom215/vpnwatch/internal/vpn"
)

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
		Str("source", cfg.OpenVPN.Source).
		Str("store", cfg.Store.Backend).
		Str("events", cfg.Events.Transport).
		Bool("nats_embedded", cfg.Events.EmbeddedServer).
		Msg("Starting vpnwatch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil {
		logging.Error().Err(err).Msg("vpnwatch exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("vpnwatch stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	openCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	metaStore, err := store.New(openCtx, store.Config{
		Backend:    cfg.Store.Backend,
		BadgerPath: cfg.Store.BadgerPath,
		RedisURL:   cfg.Store.RedisURL,
		KeyPrefix:  cfg.Store.KeyPrefix,
		Timeout:    cfg.Store.Timeout,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer func() {
		if err := metaStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing metadata store")
		}
	}()

	source := newLiveSource(cfg.OpenVPN)

	svc := vpn.NewService(source, metaStore, vpn.Config{
		IPIdentityTTL:       cfg.Cache.IPIdentityTTL,
		MetadataConcurrency: cfg.Refresh.MetadataConcurrency,
	})

	messaging, err := initEvents(cfg.Events)
	if err != nil {
		return err
	}
	defer messaging.Shutdown(cfg.Events.CloseTimeout)

	router := events.NewRouter(routerConfig(cfg.Events), messaging.Bus, svc, events.NewLoggerAdapter())

	handler := api.NewHandler(svc, messaging.Bus, metaStore, router)
	apiRouter := api.NewRouter(handler, &api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           apiRouter.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewCachePruneService(svc, cfg.Cache.PruneInterval))

	if messaging.Server != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(messaging.Server, 0))
	}
	tree.AddMessagingService(services.NewEventRouterService(router))
	tree.AddMessagingService(services.NewSchedulerService(messaging.Bus, services.SchedulerConfig{
		Topic:     events.TopicProfilesUpdated,
		Interval:  cfg.Refresh.IdentitiesInterval,
		OnStartup: cfg.Refresh.OnStartup,
		Ready:     router.Ready(),
	}))
	tree.AddMessagingService(services.NewSchedulerService(messaging.Bus, services.SchedulerConfig{
		Topic:     events.TopicConnectionAccepted,
		Interval:  cfg.Refresh.IPMappingsInterval,
		OnStartup: cfg.Refresh.OnStartup,
		Ready:     router.Ready(),
	}))

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, u := range report {
			logging.Warn().Str("service", u.Name).Msg("Service did not stop within shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}
