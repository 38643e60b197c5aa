// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package api

import (
	"context"
	"time"

	"github.com/tomtom215/vpnwatch/internal/events"
	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// Version is reported by the readiness endpoint. Set at build time with
// -ldflags "-X github.com/tomtom215/vpnwatch/internal/api.Version=...".
var Version = "dev"

// VPNService is the read side of the registry and IP caches.
type VPNService interface {
	Identities() map[string]*vpn.Profile
	Identity(label string) (*vpn.Profile, bool)
	Profiles(ctx context.Context) []vpn.ProfileView
	IPUniqueIDMappings(ctx context.Context) map[string]string
	LookupIP(ip string) (string, bool)
	IPEndpointMappings(ctx context.Context) map[string]string
}

// TriggerPublisher publishes refresh triggers onto the event bus.
type TriggerPublisher interface {
	Publish(ctx context.Context, topic, source, reason string) (events.Trigger, error)
}

// MetadataStore is the write side of the persistent metadata store.
type MetadataStore interface {
	SetMetadata(ctx context.Context, key string, fields map[string]string) error
	DeleteMetadata(ctx context.Context, key string, fields ...string) error
	Ping(ctx context.Context) error
}

// RouterStatus reports whether the trigger router is consuming.
type RouterStatus interface {
	IsRunning() bool
}

// Handler handles HTTP requests
type Handler struct {
	service   VPNService
	publisher TriggerPublisher
	store     MetadataStore
	router    RouterStatus
	startTime time.Time
}

// NewHandler creates a new API handler. router may be nil when no trigger
// router runs in this process.
func NewHandler(service VPNService, publisher TriggerPublisher, store MetadataStore, router RouterStatus) *Handler {
	return &Handler{
		service:   service,
		publisher: publisher,
		store:     store,
		router:    router,
		startTime: time.Now(),
	}
}
