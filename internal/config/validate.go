// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/vpnwatch/internal/validation"
)

// Validate checks struct tags, then the rules that span fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateOpenVPN(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	return c.validateEvents()
}

func (c *Config) validateOpenVPN() error {
	switch c.OpenVPN.Source {
	case SourceFile:
		if c.OpenVPN.StatusPath == "" {
			return fmt.Errorf("OPENVPN_STATUS_PATH is required when OPENVPN_SOURCE=file")
		}
	case SourceManagement:
		if c.OpenVPN.ManagementAddress == "" {
			return fmt.Errorf("OPENVPN_MANAGEMENT_ADDRESS is required when OPENVPN_SOURCE=management")
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Backend != "redis" {
		return nil
	}
	if c.Store.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
	}
	u, err := url.Parse(c.Store.RedisURL)
	if err != nil {
		return fmt.Errorf("REDIS_URL is invalid: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" && u.Scheme != "unix" {
		return fmt.Errorf("REDIS_URL must use redis://, rediss:// or unix://, got %q", u.Scheme)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.Transport != "nats" || c.Events.EmbeddedServer {
		return nil
	}
	if c.Events.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats without NATS_EMBEDDED")
	}
	if !strings.HasPrefix(c.Events.NATSURL, "nats://") && !strings.HasPrefix(c.Events.NATSURL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://")
	}
	return nil
}
