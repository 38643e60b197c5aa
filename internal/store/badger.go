// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// BadgerStore persists metadata in BadgerDB as one JSON object per key.
type BadgerStore struct {
	db     *badger.DB
	prefix string
	ownDB  bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory database.
func OpenBadgerStore(path, prefix string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for metadata: %w", err)
	}

	s := NewBadgerStore(db, prefix)
	s.ownDB = true
	return s, nil
}

// NewBadgerStore wraps an already open database. Close will not close db.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{db: db, prefix: prefix}
}

func (s *BadgerStore) key(k string) []byte {
	return []byte(s.prefix + k)
}

// GetMetadata returns the fields stored under key.
func (s *BadgerStore) GetMetadata(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var fields map[string]string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		fields, err = readFields(txn, s.key(key))
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fields, nil
}

// SetMetadata merges fields into key inside one read-write transaction.
func (s *BadgerStore) SetMetadata(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		k := s.key(key)
		current, err := readFields(txn, k)
		if err != nil {
			return err
		}
		return writeFields(txn, k, mergeFields(current, fields))
	})
}

// DeleteMetadata removes fields from key, dropping the key once empty.
func (s *BadgerStore) DeleteMetadata(ctx context.Context, key string, fields ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		k := s.key(key)
		current, err := readFields(txn, k)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		remaining := removeFields(current, fields)
		if len(remaining) == 0 {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("delete metadata: %w", err)
			}
			return nil
		}
		return writeFields(txn, k, remaining)
	})
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

// readFields returns nil, nil for a missing key.
func readFields(txn *badger.Txn, key []byte) (map[string]string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	var fields map[string]string
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &fields)
	}); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return fields, nil
}

func writeFields(txn *badger.Txn, key []byte, fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
