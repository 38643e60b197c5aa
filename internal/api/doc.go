// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package api provides the HTTP API of vpnwatch.

Endpoints:

	GET    /api/v1/health/live                    process is up
	GET    /api/v1/health/ready                   store reachable, router running
	GET    /api/v1/vpn/identities                 registry contents
	GET    /api/v1/vpn/identities/{label}         one identity
	PUT    /api/v1/vpn/identities/{label}/metadata  merge persisted metadata
	DELETE /api/v1/vpn/identities/{label}/metadata  remove metadata (?field=a&field=b)
	GET    /api/v1/vpn/profiles                   read model with live connections
	GET    /api/v1/vpn/ip-mappings                IP -> identity label
	GET    /api/v1/vpn/ip-mappings/{address}      single IP lookup, no refresh
	GET    /api/v1/vpn/ip-endpoints               IP -> real endpoint
	POST   /api/v1/vpn/refresh/identities         publish vpn.profiles.updated
	POST   /api/v1/vpn/refresh/ip-mappings        publish vpn.connection.accepted
	GET    /metrics                               Prometheus

Every JSON response uses the APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","count":3}}
	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}

Refresh endpoints publish a trigger and return 202; the work happens in the
event router, so the caller does not wait for the live source.
*/
package api
