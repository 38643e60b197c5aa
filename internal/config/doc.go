// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package config loads vpnwatch configuration with Koanf v2.

Sources are layered, later ones overriding earlier ones:

 1. Defaults from defaultConfig
 2. An optional YAML file: $CONFIG_PATH, else the first of config.yaml,
    config.yml, /etc/vpnwatch/config.yaml, /etc/vpnwatch/config.yml
 3. Environment variables listed in envMappings (unlisted ones are ignored)

Example config.yaml:

	openvpn:
	  source: management
	  management_address: unix:///run/openvpn/server.sock
	  profile_dir: /etc/openvpn/profiles
	store:
	  backend: redis
	  redis_url: redis://redis:6379/0
	cache:
	  ip_identity_ttl: 30m
	events:
	  transport: nats
	  nats_url: nats://nats:4222

Struct tags are checked with internal/validation; cross-field rules (a file
source needs a status path, a redis store needs a URL) live in Validate.
*/
package config
