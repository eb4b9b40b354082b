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

// FeedStore persists the materialized per-user feeds. Keys are
// "feed:{username}:{contentType}-{contentId}" so a user's whole feed and a
// user's per-type bucket are both single prefix scans.
type FeedStore struct {
	s *Store
}

// NewFeedStore returns a feed repository on the shared store.
func NewFeedStore(s *Store) *FeedStore {
	return &FeedStore{s: s}
}

func feedKey(username string, contentType models.ContentType, contentID string) string {
	return prefixFeed + username + ":" + models.ContentKey(contentType, contentID)
}

func feedUserPrefix(username string) []byte {
	return []byte(prefixFeed + username + ":")
}

func feedTypePrefix(username string, contentType models.ContentType) []byte {
	return []byte(prefixFeed + username + ":" + string(contentType) + "-")
}

// Put inserts or replaces one feed entry.
func (st *FeedStore) Put(ctx context.Context, entry *models.FeedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, feedKey(entry.Username, entry.ContentType, entry.ContentID), entry)
	})
}

// Delete removes one feed entry. Deleting an absent entry is not an error.
func (st *FeedStore) Delete(ctx context.Context, username string, contentType models.ContentType, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(feedKey(username, contentType, contentID)))
	})
}

// EntriesByUser returns every entry of the user's feed.
func (st *FeedStore) EntriesByUser(ctx context.Context, username string) ([]models.FeedEntry, error) {
	return st.scan(ctx, feedUserPrefix(username))
}

// EntriesByUserAndType returns the user's bucket for one content type.
func (st *FeedStore) EntriesByUserAndType(ctx context.Context, username string, contentType models.ContentType) ([]models.FeedEntry, error) {
	return st.scan(ctx, feedTypePrefix(username, contentType))
}

func (st *FeedStore) scan(ctx context.Context, prefix []byte) ([]models.FeedEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []models.FeedEntry
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.FeedEntry
			if err := getJSONItem(it.Item(), &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateBucket runs a read-modify-write cycle over one per-type bucket in a
// single transaction: the transform sees the current bucket and returns the
// entries to delete and to put. The incremental updater uses this so its
// min-comparison and the eviction commit atomically.
func (st *FeedStore) UpdateBucket(ctx context.Context, username string, contentType models.ContentType, transform func(current []models.FeedEntry) (remove []models.FeedEntry, put []models.FeedEntry, err error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		prefix := feedTypePrefix(username, contentType)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		var current []models.FeedEntry
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.FeedEntry
			if err := getJSONItem(it.Item(), &entry); err != nil {
				it.Close()
				return err
			}
			current = append(current, entry)
		}
		it.Close()

		remove, put, err := transform(current)
		if err != nil {
			return err
		}
		for i := range remove {
			key := feedKey(username, remove[i].ContentType, remove[i].ContentID)
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		for i := range put {
			key := feedKey(username, put[i].ContentType, put[i].ContentID)
			if err := setJSON(txn, key, &put[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Replace atomically swaps the user's entire feed for the given entries.
// The old rows are deleted and the new ones written in one transaction, so
// readers never observe a partially rebuilt feed.
func (st *FeedStore) Replace(ctx context.Context, username string, entries []models.FeedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		prefix := feedUserPrefix(username)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		var stale [][]byte
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for i := range entries {
			key := feedKey(username, entries[i].ContentType, entries[i].ContentID)
			if err := setJSON(txn, key, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
