// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"time"

	"github.com/tomtom215/vpnwatch/internal/metrics"
)

// IPEndpointCache derives virtual IP -> real endpoint from the live session
// table. It holds no state: every Snapshot reflects only current sessions.
type IPEndpointCache struct {
	source LiveSource
}

// NewIPEndpointCache creates an endpoint view over source.
func NewIPEndpointCache(source LiveSource) *IPEndpointCache {
	return &IPEndpointCache{source: source}
}

// Snapshot returns ip -> endpoint for every valid virtual address of every
// live session.
func (c *IPEndpointCache) Snapshot(ctx context.Context) map[string]string {
	start := time.Now()

	out, invalid := mapAddresses(liveSessions(ctx, c.source), func(s Session) string {
		return s.Endpoint
	})

	metrics.RecordInvalidAddresses(invalid)
	metrics.SetIPEndpointEntries(len(out))
	metrics.RecordRefresh(metrics.OpEndpoints, time.Since(start), nil)
	return out
}
