// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"

	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/metrics"
)

// LiveSource reports the VPN daemon's current view. Implementations live in
// internal/openvpn.
type LiveSource interface {
	// ListIdentities returns label -> settings for every configured identity.
	ListIdentities(ctx context.Context) (map[string]Settings, error)

	// Statistics returns the currently connected sessions.
	Statistics(ctx context.Context) (*Statistics, error)
}

// MetadataStore reads persisted per-identity metadata. Implementations live
// in internal/store and return store.ErrNotFound for keys with no fields.
type MetadataStore interface {
	GetMetadata(ctx context.Context, key string) (map[string]string, error)
}

// liveListing calls ListIdentities, treating failure as an empty listing.
func liveListing(ctx context.Context, src LiveSource) map[string]Settings {
	listing, err := src.ListIdentities(ctx)
	if err != nil {
		metrics.RecordLiveSourceError("list_identities")
		logging.Ctx(ctx).Warn().Err(err).Msg("Identity listing unavailable, treating as empty")
		return map[string]Settings{}
	}
	if listing == nil {
		return map[string]Settings{}
	}
	return listing
}

// liveSessions calls Statistics, treating failure or nil as no sessions.
func liveSessions(ctx context.Context, src LiveSource) []Session {
	stats, err := src.Statistics(ctx)
	if err != nil {
		metrics.RecordLiveSourceError("statistics")
		logging.Ctx(ctx).Warn().Err(err).Msg("Session statistics unavailable, treating as empty")
		return nil
	}
	if stats == nil {
		return nil
	}
	return stats.Sessions
}
