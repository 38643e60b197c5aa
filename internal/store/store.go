// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

// Package store provides persistent per-identity metadata storage.
//
// Metadata is a flat map of field name to string value, addressed by an
// identity's store key (for example "vpnProfile:alice"). Three backends are
// available:
//
//   - memory: process-local, for tests and single-shot runs
//   - badger: embedded BadgerDB, one JSON document per key
//   - redis: one hash per key, shared between router processes
//
// All backends return ErrNotFound when a key holds no fields.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetMetadata when a key has no stored fields.
var ErrNotFound = errors.New("metadata not found")

// Store is the metadata persistence contract shared by all backends.
type Store interface {
	// GetMetadata returns all fields stored under key, or ErrNotFound.
	GetMetadata(ctx context.Context, key string) (map[string]string, error)

	// SetMetadata merges fields into key, overwriting fields with the same name.
	SetMetadata(ctx context.Context, key string, fields map[string]string) error

	// DeleteMetadata removes the named fields from key. With no field names
	// every field is removed. Missing keys are not an error.
	DeleteMetadata(ctx context.Context, key string, fields ...string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// DefaultKeyPrefix namespaces vpnwatch keys in shared backends.
const DefaultKeyPrefix = "vpnwatch:"

// mergeFields copies src over dst and returns dst, allocating if needed.
func mergeFields(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// removeFields deletes names from m, or every field when names is empty.
func removeFields(m map[string]string, names []string) map[string]string {
	if len(names) == 0 {
		return map[string]string{}
	}
	for _, n := range names {
		delete(m, n)
	}
	return m
}
