// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/vpnwatch/internal/config"
	"github.com/tomtom215/vpnwatch/internal/events"
	"github.com/tomtom215/vpnwatch/internal/logging"
)

// messagingComponents holds the trigger bus and, when embedded, the NATS
// server it is connected to.
type messagingComponents struct {
	Bus    *events.Bus
	Server *events.EmbeddedServer
}

// initEvents builds the bus for the configured transport.
func initEvents(cfg config.EventsConfig) (*messagingComponents, error) {
	logger := events.NewLoggerAdapter()

	if cfg.Transport != "nats" {
		logging.Info().Msg("Using in-process trigger bus")
		return &messagingComponents{Bus: events.NewChannelBus(logger)}, nil
	}

	m := &messagingComponents{}
	url := cfg.NATSURL

	if cfg.EmbeddedServer {
		srv, err := events.NewEmbeddedServer(events.ServerConfig{
			Host: cfg.EmbeddedHost,
			Port: cfg.EmbeddedPort,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		m.Server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL = url
	natsCfg.CloseTimeout = cfg.CloseTimeout

	bus, err := events.NewNATSBus(natsCfg, logger)
	if err != nil {
		m.Shutdown(cfg.CloseTimeout)
		return nil, fmt.Errorf("connect NATS trigger bus: %w", err)
	}
	m.Bus = bus

	logging.Info().Str("url", url).Msg("Connected NATS trigger bus")
	return m, nil
}

// Shutdown closes the bus before the server it is connected to.
func (m *messagingComponents) Shutdown(timeout time.Duration) {
	if m.Bus != nil {
		if err := m.Bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing trigger bus")
		}
	}
	if m.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := m.Server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}

func routerConfig(cfg config.EventsConfig) events.RouterConfig {
	rc := events.DefaultRouterConfig()
	rc.CloseTimeout = cfg.CloseTimeout
	rc.RetryMaxRetries = cfg.RetryMaxRetries
	if cfg.RetryInitialInterval > 0 {
		rc.RetryInitialInterval = cfg.RetryInitialInterval
	}
	return rc
}
