// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package store implements the materialized state repositories on BadgerDB:
// affinity records, per-user feeds, genre and artist inverted indexes, the
// catalog, content snapshots, the user directory, subscriptions, and ratings.
//
// All repositories share one Badger instance and partition the keyspace with
// string prefixes. Values are JSON. Read-modify-write cycles run inside a
// single transaction; badger.ErrConflict triggers a bounded retry so
// concurrent writers serialize without external locking.
package store

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/metrics"
)

// Key prefixes partitioning the shared Badger keyspace.
const (
	prefixAffinity  = "affinity:"
	prefixFeed      = "feed:"
	prefixGenreIdx  = "genreidx:"
	prefixArtistIdx = "artistidx:"
	prefixCatalog   = "catalog:"
	prefixSnapshot  = "snapshot:"
	prefixUser      = "user:"
	prefixSub       = "sub:"
	prefixRating    = "rating:"
)

// maxConflictRetries bounds optimistic-concurrency retries on ErrConflict.
const maxConflictRetries = 20

// conflictBackoff spaces retries so competing writers interleave.
const conflictBackoff = 2 * time.Millisecond

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the shared Badger instance.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Config holds store settings.
type Config struct {
	// Dir is the Badger data directory. Empty means in-memory (tests).
	Dir string

	// ScanPageSize bounds prefix iterations per transaction.
	ScanPageSize int
}

// DefaultScanPageSize is used when Config.ScanPageSize is zero.
const DefaultScanPageSize = 250

// Open opens (or creates) the Badger database at cfg.Dir.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.Dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Dir, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying Badger handle for maintenance tasks.
func (s *Store) DB() *badger.DB {
	return s.db
}

// update runs fn in a read-write transaction, retrying on optimistic
// concurrency conflicts. Badger tracks reads inside db.Update, so two
// transactions touching the same key conflict instead of lost-updating.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		metrics.RecordStoreConflictRetry()
		time.Sleep(time.Duration(attempt+1) * conflictBackoff)
	}
	return fmt.Errorf("transaction conflict persisted after %d attempts: %w", maxConflictRetries, err)
}

// view runs fn in a read-only transaction.
func (s *Store) view(fn func(txn *badger.Txn) error) error {
	return s.db.View(fn)
}

// setJSON writes v under key as JSON.
func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// getJSON reads key into out, mapping a missing key to ErrNotFound.
func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
		return nil
	})
}

// getJSONItem decodes an iterator item's value into out.
func getJSONItem(item *badger.Item, out any) error {
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("unmarshal %s: %w", item.Key(), err)
		}
		return nil
	})
}

// badgerLogger adapts zerolog to badger.Logger. Badger is chatty at info
// level during compaction, so its info output maps to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf("badger: "+trimNewline(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn().Msgf("badger: "+trimNewline(format), args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug().Msgf("badger: "+trimNewline(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf("badger: "+trimNewline(format), args...)
}

func trimNewline(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}
