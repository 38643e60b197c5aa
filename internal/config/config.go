// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	OpenVPN OpenVPNConfig `koanf:"openvpn"`
	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Refresh RefreshConfig `koanf:"refresh"`
	Events  EventsConfig  `koanf:"events"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// Live source kinds.
const (
	SourceFile       = "file"
	SourceManagement = "management"
)

// OpenVPNConfig selects and configures the live source.
type OpenVPNConfig struct {
	// Source is "file" (read --status output) or "management" (ask the
	// management interface).
	// Default: file
	Source string `koanf:"source" validate:"oneof=file management"`

	// StatusPath is the --status file. Required for the file source.
	StatusPath string `koanf:"status_path"`

	// ProfileDir holds <label>.settings.json files, one per identity.
	ProfileDir string `koanf:"profile_dir" validate:"required"`

	// ManagementAddress is host:port, tcp://host:port, unix:///path or a
	// socket path. Required for the management source.
	ManagementAddress  string `koanf:"management_address"`
	ManagementPassword string `koanf:"management_password"`

	// Timeout bounds one status read.
	// Default: 5s
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// BreakerThreshold is the consecutive failure count that opens the
	// management circuit breaker.
	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"min=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// StoreConfig configures the persistent metadata store.
type StoreConfig struct {
	// Backend is memory, badger or redis.
	// Default: badger
	Backend string `koanf:"backend" validate:"oneof=memory badger redis"`

	// BadgerPath is the badger directory; empty runs badger in memory.
	BadgerPath string `koanf:"badger_path"`

	// RedisURL is a redis:// or rediss:// URL. Required for redis.
	RedisURL string `koanf:"redis_url"`

	// KeyPrefix namespaces every key, so several deployments can share one
	// redis database.
	KeyPrefix string `koanf:"key_prefix"`

	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// CacheConfig configures the IP caches.
type CacheConfig struct {
	// IPIdentityTTL is how long an IP to identity mapping survives after
	// its last refresh.
	// Default: 30m
	IPIdentityTTL time.Duration `koanf:"ip_identity_ttl" validate:"gt=0"`

	// PruneInterval is how often expired IP to identity entries are dropped.
	// Default: 1m
	PruneInterval time.Duration `koanf:"prune_interval" validate:"gt=0"`
}

// RefreshConfig configures the scheduler and reconciliation.
type RefreshConfig struct {
	// IdentitiesInterval is how often a profiles-updated trigger is
	// published. Zero disables scheduled identity refreshes.
	IdentitiesInterval time.Duration `koanf:"identities_interval" validate:"gte=0"`

	// IPMappingsInterval is how often a connection-accepted trigger is
	// published. Zero disables scheduled IP refreshes.
	IPMappingsInterval time.Duration `koanf:"ip_mappings_interval" validate:"gte=0"`

	// OnStartup publishes both triggers once when the scheduler starts.
	OnStartup bool `koanf:"on_startup"`

	// MetadataConcurrency bounds parallel metadata fetches in one pass.
	MetadataConcurrency int `koanf:"metadata_concurrency" validate:"min=1,max=256"`
}

// EventsConfig configures the trigger bus.
type EventsConfig struct {
	// Transport is gochannel (in-process) or nats.
	Transport string `koanf:"transport" validate:"oneof=gochannel nats"`

	// NATSURL is the broker URL. Ignored when EmbeddedServer is set.
	NATSURL string `koanf:"nats_url"`

	// EmbeddedServer starts an in-process NATS server and connects to it.
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedHost   string `koanf:"embedded_host"`
	EmbeddedPort   int    `koanf:"embedded_port" validate:"min=-1,max=65535"`

	RetryMaxRetries      int           `koanf:"retry_max_retries" validate:"min=0"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval" validate:"gte=0"`
	CloseTimeout         time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// Timeout is the read/write timeout for requests.
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller adds file:line to each entry.
	Caller bool `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		OpenVPN: OpenVPNConfig{
			Source:           SourceFile,
			StatusPath:       "/run/openvpn/server.status",
			ProfileDir:       "/etc/openvpn/profiles",
			Timeout:          5 * time.Second,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Store: StoreConfig{
			Backend:    "badger",
			BadgerPath: "/data/vpnwatch",
			KeyPrefix:  "vpnwatch:",
			Timeout:    5 * time.Second,
		},
		Cache: CacheConfig{
			IPIdentityTTL: 30 * time.Minute,
			PruneInterval: time.Minute,
		},
		Refresh: RefreshConfig{
			IdentitiesInterval:  5 * time.Minute,
			IPMappingsInterval:  30 * time.Second,
			OnStartup:           true,
			MetadataConcurrency: 8,
		},
		Events: EventsConfig{
			Transport:            "gochannel",
			NATSURL:              "nats://127.0.0.1:4222",
			EmbeddedServer:       false,
			EmbeddedHost:         "127.0.0.1",
			EmbeddedPort:         4222,
			RetryMaxRetries:      3,
			RetryInitialInterval: 500 * time.Millisecond,
			CloseTimeout:         10 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8089,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
