// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package store

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mpavic/crescendo/internal/models"
)

// SnapshotStore keeps the differ's last-applied copy of each content item
// under "snapshot:{contentKey}". The differ diffs against this baseline
// rather than the caller-supplied old content, so a stale or replayed event
// cannot drift the indexes.
type SnapshotStore struct {
	s *Store
}

// NewSnapshotStore returns a snapshot repository on the shared store.
func NewSnapshotStore(s *Store) *SnapshotStore {
	return &SnapshotStore{s: s}
}

func snapshotKey(contentKey string) string {
	return prefixSnapshot + contentKey
}

// Get returns the last-applied snapshot for contentKey, or ErrNotFound.
func (st *SnapshotStore) Get(ctx context.Context, contentKey string) (*models.CatalogItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var item models.CatalogItem
	err := st.s.view(func(txn *badger.Txn) error {
		return getJSON(txn, snapshotKey(contentKey), &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Put records item as the last-applied state for its content key.
func (st *SnapshotStore) Put(ctx context.Context, item *models.CatalogItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, snapshotKey(item.ContentKey()), item)
	})
}

// Delete drops the snapshot after the content itself is deleted.
func (st *SnapshotStore) Delete(ctx context.Context, contentKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(snapshotKey(contentKey)))
	})
}
