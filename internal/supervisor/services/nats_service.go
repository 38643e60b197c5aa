// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/vpnwatch/internal/logging"
)

// NATSServer is satisfied by *events.EmbeddedServer.
type NATSServer interface {
	IsRunning() bool
}

// EmbeddedNATSService watches the in-process NATS server. The server is
// started before the bus connects and shut down by main after the bus
// closes, so this service only observes it. If the server dies the whole
// tree terminates: every trigger path depends on it and it cannot be
// restarted under an existing bus connection.
type EmbeddedNATSService struct {
	server        NATSServer
	checkInterval time.Duration
	name          string
}

// NewEmbeddedNATSService monitors server every checkInterval (default 5s).
func NewEmbeddedNATSService(server NATSServer, checkInterval time.Duration) *EmbeddedNATSService {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	return &EmbeddedNATSService{
		server:        server,
		checkInterval: checkInterval,
		name:          "nats-embedded",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		if !s.server.IsRunning() {
			logging.Error().Msg("Embedded NATS server is no longer running")
			return suture.ErrTerminateSupervisorTree
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *EmbeddedNATSService) String() string {
	return s.name
}
