// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package store

import (
	"context"
	"sync"
)

// MemoryStore keeps metadata in a process-local map.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// GetMetadata returns a copy of the fields stored under key.
func (s *MemoryStore) GetMetadata(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.data[key]
	if !ok || len(fields) == 0 {
		return nil, ErrNotFound
	}
	return mergeFields(nil, fields), nil
}

// SetMetadata merges fields into key.
func (s *MemoryStore) SetMetadata(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = mergeFields(s.data[key], fields)
	return nil
}

// DeleteMetadata removes fields from key.
func (s *MemoryStore) DeleteMetadata(ctx context.Context, key string, fields ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[key]
	if !ok {
		return nil
	}
	if remaining := removeFields(current, fields); len(remaining) > 0 {
		s.data[key] = remaining
		return nil
	}
	delete(s.data, key)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
