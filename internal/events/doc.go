// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package events carries refresh triggers between whoever notices a change and
the vpn.Service that reconciles it.

Two topics are defined:

  - vpn.profiles.updated: the set of configured profiles may have changed;
    handled by RefreshIdentities
  - vpn.connection.accepted: a client connected or disconnected; handled by
    RefreshIPMappings

# Transports

A Bus pairs a Watermill publisher with a subscriber. NewChannelBus uses the
in-process gochannel Pub/Sub and is the default for single instances.
NewNATSBus uses core NATS (JetStream disabled) so that a connect hook on the
VPN host, or another vpnwatch instance, can publish triggers over the
network. Triggers are not durable: a missed trigger is covered by the next
scheduled refresh. EmbeddedServer runs an in-process nats-server for
deployments without an external broker.

# Router

Router subscribes to both topics and invokes a Refresher. Handlers run
behind Watermill's Recoverer and Retry middleware. Every trigger carries a
correlation ID that is copied into the handler context so log lines from one
refresh pass can be grouped.

Router.Run builds a fresh Watermill router each time it is called, which
lets a supervisor restart it after a failure.
*/
package events
