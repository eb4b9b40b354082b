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

// RatingStore persists ratings keyed "rating:{contentId}:{username}",
// so re-rating overwrites and per-content listings are prefix scans.
type RatingStore struct {
	s *Store
}

// NewRatingStore returns a rating repository on the shared store.
func NewRatingStore(s *Store) *RatingStore {
	return &RatingStore{s: s}
}

func ratingKey(contentID, username string) string {
	return prefixRating + contentID + ":" + username
}

// Put inserts or replaces a rating.
func (st *RatingStore) Put(ctx context.Context, rating *models.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, ratingKey(rating.ContentID, rating.Username), rating)
	})
}

// Get returns one user's rating of one content item, or ErrNotFound.
func (st *RatingStore) Get(ctx context.Context, contentID, username string) (*models.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rating models.Rating
	err := st.s.view(func(txn *badger.Txn) error {
		return getJSON(txn, ratingKey(contentID, username), &rating)
	})
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// ListByContent returns every rating of one content item.
func (st *RatingStore) ListByContent(ctx context.Context, contentID string) ([]models.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(prefixRating + contentID + ":")
	var ratings []models.Rating
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rating models.Rating
			if err := getJSONItem(it.Item(), &rating); err != nil {
				return err
			}
			ratings = append(ratings, rating)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ratings, nil
}
