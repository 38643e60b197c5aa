// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package main

import (
	"github.com/tomtom215/vpnwatch/internal/config"
	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/openvpn"
	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// newLiveSource returns the OpenVPN source selected by cfg.Source.
func newLiveSource(cfg config.OpenVPNConfig) vpn.LiveSource {
	if cfg.Source == config.SourceManagement {
		client := openvpn.NewManagementClient(openvpn.ManagementConfig{
			Address:          cfg.ManagementAddress,
			Password:         cfg.ManagementPassword,
			Timeout:          cfg.Timeout,
			FailureThreshold: cfg.BreakerThreshold,
			OpenTimeout:      cfg.BreakerTimeout,
		})
		logging.Info().
			Str("address", cfg.ManagementAddress).
			Str("profile_dir", cfg.ProfileDir).
			Msg("Using OpenVPN management interface")
		return openvpn.NewManagementSource(client, cfg.ProfileDir)
	}

	logging.Info().
		Str("status_path", cfg.StatusPath).
		Str("profile_dir", cfg.ProfileDir).
		Msg("Using OpenVPN status file")
	return openvpn.NewFileSource(cfg.StatusPath, cfg.ProfileDir)
}
