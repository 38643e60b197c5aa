// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package supervisor provides process supervision for vpnwatch using suture v4.

The tree isolates failures by layer:

	RootSupervisor ("vpnwatch")
	├── DataSupervisor ("data-layer")
	│   └── CachePruneService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EmbeddedNATSService (events.embedded_nats only)
	│   ├── EventRouterService
	│   ├── SchedulerService (vpn.profiles.updated)
	│   └── SchedulerService (vpn.connection.accepted)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (service start, failure, backoff) are logged through
sutureslog to an slog.Logger backed by the zerolog global logger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor tree exited")
	}

See the services subpackage for the wrappers.
*/
package supervisor
