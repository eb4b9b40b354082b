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

// SubscriptionStore persists artist and genre subscriptions keyed
// "sub:{username}:{targetId}".
type SubscriptionStore struct {
	s *Store
}

// NewSubscriptionStore returns a subscription repository on the shared store.
func NewSubscriptionStore(s *Store) *SubscriptionStore {
	return &SubscriptionStore{s: s}
}

func subKey(username, targetID string) string {
	return prefixSub + username + ":" + targetID
}

// Put records a subscription.
func (st *SubscriptionStore) Put(ctx context.Context, sub *models.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, subKey(sub.Username, sub.TargetID), sub)
	})
}

// Get returns one subscription, or ErrNotFound.
func (st *SubscriptionStore) Get(ctx context.Context, username, targetID string) (*models.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sub models.Subscription
	err := st.s.view(func(txn *badger.Txn) error {
		return getJSON(txn, subKey(username, targetID), &sub)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Delete removes a subscription.
func (st *SubscriptionStore) Delete(ctx context.Context, username, targetID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(subKey(username, targetID)))
	})
}

// ListByUser returns all of one user's subscriptions.
func (st *SubscriptionStore) ListByUser(ctx context.Context, username string) ([]models.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(prefixSub + username + ":")
	var subs []models.Subscription
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sub models.Subscription
			if err := getJSONItem(it.Item(), &sub); err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}
