// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"time"

	"github.com/tomtom215/vpnwatch/internal/cache"
)

// Config configures a Service.
type Config struct {
	// IPIdentityTTL is the attribution window of the IP -> label cache.
	IPIdentityTTL time.Duration

	// MetadataConcurrency bounds concurrent metadata fetches per refresh.
	MetadataConcurrency int

	// Now overrides the cache clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		IPIdentityTTL:       DefaultIPIdentityTTL,
		MetadataConcurrency: DefaultMetadataConcurrency,
	}
}

// Service exposes the registry and both IP caches over one live source.
type Service struct {
	source     LiveSource
	registry   *Registry
	ipIdentity *IPIdentityCache
	ipEndpoint *IPEndpointCache
}

// NewService wires a registry and both caches to source and metadataStore.
func NewService(source LiveSource, metadataStore MetadataStore, cfg Config) *Service {
	var opts []cache.Option
	if cfg.Now != nil {
		opts = append(opts, cache.WithClock(cfg.Now))
	}

	return &Service{
		source:     source,
		registry:   NewRegistry(source, metadataStore, cfg.MetadataConcurrency),
		ipIdentity: NewIPIdentityCache(source, cfg.IPIdentityTTL, opts...),
		ipEndpoint: NewIPEndpointCache(source),
	}
}

// Registry returns the underlying identity registry.
func (s *Service) Registry() *Registry { return s.registry }

// RefreshIdentities runs one registry reconciliation pass.
func (s *Service) RefreshIdentities(ctx context.Context) error {
	return s.registry.Refresh(ctx)
}

// RefreshIPMappings runs one write-only IP identity cache refresh.
func (s *Service) RefreshIPMappings(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.ipIdentity.Refresh(ctx)
	return nil
}

// Identities returns the current label -> Profile map.
func (s *Service) Identities() map[string]*Profile {
	return s.registry.Snapshot()
}

// Identity returns one profile by label.
func (s *Service) Identity(label string) (*Profile, bool) {
	return s.registry.Get(label)
}

// IPUniqueIDMappings refreshes the IP identity cache from the live source,
// then returns every unexpired ip -> label pair.
func (s *Service) IPUniqueIDMappings(ctx context.Context) map[string]string {
	s.ipIdentity.Refresh(ctx)
	return s.ipIdentity.Snapshot()
}

// LookupIP returns the label last attributed to ip within the TTL window.
func (s *Service) LookupIP(ip string) (string, bool) {
	return s.ipIdentity.Lookup(ip)
}

// IPEndpointMappings returns ip -> endpoint for current live sessions.
func (s *Service) IPEndpointMappings(ctx context.Context) map[string]string {
	return s.ipEndpoint.Snapshot(ctx)
}

// Profiles returns the reporting read model of every registered profile.
func (s *Service) Profiles(ctx context.Context) []ProfileView {
	return BuildProfileViews(s.registry.Snapshot(), liveSessions(ctx, s.source))
}

// PruneIPMappings drops expired IP identity entries.
func (s *Service) PruneIPMappings() int {
	return s.ipIdentity.Prune()
}
