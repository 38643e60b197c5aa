// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

// Package main is the entry point for the vpnwatch daemon.
//
// vpnwatch keeps a registry of OpenVPN client identities, attributes tunnel
// addresses to them, and serves both over HTTP for routers and reporting.
//
// # Startup Order
//
//  1. Configuration: defaults, /etc/vpnwatch/config.yaml, environment (koanf)
//  2. Metadata store: memory, BadgerDB or Redis
//  3. Live source: OpenVPN status file or management interface
//  4. Trigger bus: in-process gochannel, external NATS, or embedded NATS
//  5. Supervisor tree: cache pruner, event router, schedulers, HTTP server
//
// Every refresh, scheduled or external, travels the trigger bus and is run by
// the event router. A client-connect hook can publish to
// vpn.connection.accepted on NATS to refresh IP attribution immediately:
//
//	nats pub vpn.connection.accepted ''
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains for
// SERVER_SHUTDOWN_TIMEOUT, the router closes, then the bus, the embedded
// NATS server and the metadata store are closed in that order.
//
// # Example
//
//	export OPENVPN_STATUS_PATH=/run/openvpn/server.status
//	export OPENVPN_PROFILE_DIR=/etc/openvpn/profiles
//	export STORE_BACKEND=redis REDIS_URL=redis://localhost:6379/0
//	export EVENTS_TRANSPORT=nats NATS_EMBEDDED=true
//	./vpnwatch
package main
