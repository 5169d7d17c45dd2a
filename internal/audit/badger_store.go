// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sardinai/internal/logging"
)

// Key layout: "audit:" + zero-padded unix nanos + ":" + event ID, so a
// prefix scan visits events in time order.
const eventKeyPrefix = "audit:"

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory, for tests.
	InMemory bool

	// Retention is the TTL of every event; zero keeps events forever.
	Retention time.Duration

	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// BadgerStore implements Store on BadgerDB. Events expire through badger's
// TTL; Delete exists for explicit cleanup.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

// OpenBadgerStore opens (or creates) the audit database.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("audit store path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	opts.SyncWrites = cfg.SyncWrites
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for audit: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("retention", cfg.Retention).
		Msg("Audit store opened")
	return &BadgerStore{db: db, retention: cfg.Retention}, nil
}

func eventKey(e *Event) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", eventKeyPrefix, e.Timestamp.UnixNano(), e.ID))
}

// Save persists an audit event.
func (s *BadgerStore) Save(_ context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(eventKey(event), data)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set audit event: %w", err)
		}
		return nil
	})
}

// Recent returns matching events, newest first.
func (s *BadgerStore) Recent(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.limit()
	var results []Event

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key below prefix+0xff.
		seek := append([]byte(eventKeyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(results) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode audit event %s: %w", it.Item().Key(), err)
			}
			if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
				// Keys are time ordered; everything further is older.
				break
			}
			if filter.matches(&e) {
				results = append(results, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes events older than olderThan.
func (s *BadgerStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	var keys [][]byte
	cutoff := []byte(fmt.Sprintf("%s%020d", eventKeyPrefix, olderThan.UnixNano()))

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, cutoff) >= 0 {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan audit events: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete audit event: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush audit deletes: %w", err)
	}
	return int64(len(keys)), nil
}

// RunGC reclaims value log space.
func (s *BadgerStore) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
