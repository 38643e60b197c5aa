// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package services provides suture.Service wrappers for vpnwatch components.

Each wrapper translates a component lifecycle (ListenAndServe, Run, a ticker)
into suture's context-aware Serve and implements fmt.Stringer so suture can
name it in logs.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown

Scheduler (SchedulerService):
  - Publishes one refresh topic on an interval, optionally at startup

Event Router (EventRouterService):
  - Runs events.Router; a failed router is restarted by suture

Embedded NATS (EmbeddedNATSService):
  - Watches the in-process server and terminates the tree if it dies

IP Cache Pruner (CachePruneService):
  - Drops expired IP to identity entries

All services return ctx.Err() on normal shutdown.
*/
package services
