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

// UserDirectory enumerates registered users. The incremental feed updater
// pages through it to fan newly published content out to every feed.
type UserDirectory struct {
	s        *Store
	pageSize int
}

// NewUserDirectory returns a user directory on the shared store.
func NewUserDirectory(s *Store, pageSize int) *UserDirectory {
	if pageSize <= 0 {
		pageSize = DefaultScanPageSize
	}
	return &UserDirectory{s: s, pageSize: pageSize}
}

func userKey(username string) string {
	return prefixUser + username
}

// Register inserts or replaces a directory entry.
func (st *UserDirectory) Register(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, userKey(user.Username), user)
	})
}

// Get returns one directory entry, or ErrNotFound.
func (st *UserDirectory) Get(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user models.User
	err := st.s.view(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(username), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns one page of users starting after cursor (exclusive; empty
// cursor starts from the beginning). The returned cursor is empty when the
// directory is exhausted.
func (st *UserDirectory) List(ctx context.Context, cursor string) ([]models.User, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	prefix := []byte(prefixUser)
	start := prefix
	if cursor != "" {
		start = append([]byte(userKey(cursor)), 0)
	}

	var (
		users []models.User
		next  string
	)
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if len(users) == st.pageSize {
				next = users[len(users)-1].Username
				return nil
			}
			var user models.User
			if err := getJSONItem(it.Item(), &user); err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return users, next, nil
}

// ForEach streams every registered user through fn, paging transparently.
func (st *UserDirectory) ForEach(ctx context.Context, fn func(*models.User) error) error {
	cursor := ""
	for {
		users, next, err := st.List(ctx, cursor)
		if err != nil {
			return err
		}
		for i := range users {
			if err := fn(&users[i]); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}
