// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

// Package vpn tracks VPN client identities and attributes virtual IP
// addresses to them.
//
// # Overview
//
// The package reconciles three views of the VPN:
//
//   - Registry: label -> *Profile, rebuilt from the live identity listing on
//     every Refresh and overlaid with persisted metadata
//   - IPIdentityCache: virtual IP -> label, kept for a TTL window after the
//     session disappears so late flow logs can still be attributed
//   - IPEndpointCache: virtual IP -> real "ip:port", derived from live
//     sessions only
//
// Service bundles the three for the API and trigger handlers.
//
// # Reconciliation
//
// Registry.Refresh performs a mark-and-sweep against the live listing:
//
//  1. mark every registered profile inactive
//  2. update listed profiles in place (or create them) and mark them active
//  3. delete profiles that are still inactive
//  4. fetch metadata for every survivor concurrently and apply it on top of
//     the live settings; persisted values win
//
// Step 4 runs for every profile on every pass. The first store error cancels
// the remaining fetches and is returned; the registry keeps whatever steps
// 1-3 and the completed fetches already changed.
//
// # Concurrency
//
// Profile fields and the registry map are mutex guarded, but a Refresh pass
// as a whole is not serialized. Two overlapping Refresh calls on one Registry
// may interleave and settle as last-write-wins. Callers that need
// deterministic results must not run Refresh concurrently.
//
// # Usage
//
//	svc := vpn.NewService(source, metadataStore, vpn.DefaultConfig())
//	if err := svc.RefreshIdentities(ctx); err != nil {
//	    logging.Error().Err(err).Msg("Identity refresh failed")
//	}
//	mappings := svc.IPUniqueIDMappings(ctx)
package vpn
