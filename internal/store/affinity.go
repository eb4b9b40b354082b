// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package store

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mpavic/crescendo/internal/models"
)

// AffinityStore persists per-user genre affinity records.
type AffinityStore struct {
	s *Store
}

// NewAffinityStore returns an affinity repository on the shared store.
func NewAffinityStore(s *Store) *AffinityStore {
	return &AffinityStore{s: s}
}

func affinityKey(username string) string {
	return prefixAffinity + username
}

// Get returns the user's affinity record, or ErrNotFound.
func (st *AffinityStore) Get(ctx context.Context, username string) (*models.AffinityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec models.AffinityRecord
	err := st.s.view(func(txn *badger.Txn) error {
		return getJSON(txn, affinityKey(username), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetOrEmpty returns the user's record, or a fresh empty one if absent.
func (st *AffinityStore) GetOrEmpty(ctx context.Context, username string) (*models.AffinityRecord, error) {
	rec, err := st.Get(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return models.NewAffinityRecord(username), nil
	}
	return rec, err
}

// Put overwrites the user's affinity record.
func (st *AffinityStore) Put(ctx context.Context, rec *models.AffinityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, affinityKey(rec.Username), rec)
	})
}

// Apply runs a read-modify-write cycle for one user inside a single
// transaction. The transform receives the current record (empty when absent)
// and returns the record to persist. Concurrent cycles for the same user
// conflict and retry, so every delta lands exactly once in the stored state.
func (st *AffinityStore) Apply(ctx context.Context, username string, transform func(*models.AffinityRecord) (*models.AffinityRecord, error)) (*models.AffinityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *models.AffinityRecord
	err := st.s.update(func(txn *badger.Txn) error {
		current := models.NewAffinityRecord(username)
		err := getJSON(txn, affinityKey(username), current)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		next, err := transform(current)
		if err != nil {
			return err
		}
		next.UpdatedAt = time.Now().UTC()

		if err := setJSON(txn, affinityKey(username), next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
