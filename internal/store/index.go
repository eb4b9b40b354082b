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

// GenreIndexStore persists the genre inverted index. Keys are
// "genreidx:{genre}:{contentKey}" so all content for a genre is one
// prefix scan, the partition-query shape the filter endpoints need.
type GenreIndexStore struct {
	s *Store
}

// NewGenreIndexStore returns a genre index repository on the shared store.
func NewGenreIndexStore(s *Store) *GenreIndexStore {
	return &GenreIndexStore{s: s}
}

func genreIdxKey(genre, contentKey string) string {
	return prefixGenreIdx + genre + ":" + contentKey
}

// Put inserts or replaces one index row.
func (st *GenreIndexStore) Put(ctx context.Context, entry *models.GenreIndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, genreIdxKey(entry.GenreName, entry.ContentKey), entry)
	})
}

// Delete removes one index row. Absent rows delete cleanly, which makes
// re-applied diffs idempotent.
func (st *GenreIndexStore) Delete(ctx context.Context, genre, contentKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(genreIdxKey(genre, contentKey)))
	})
}

// Query returns every row filed under the genre partition.
func (st *GenreIndexStore) Query(ctx context.Context, genre string) ([]models.GenreIndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(prefixGenreIdx + genre + ":")
	var entries []models.GenreIndexEntry
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.GenreIndexEntry
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

// ArtistIndexStore persists the artist inverted index with keys
// "artistidx:{artistId}:{contentKey}".
type ArtistIndexStore struct {
	s *Store
}

// NewArtistIndexStore returns an artist index repository on the shared store.
func NewArtistIndexStore(s *Store) *ArtistIndexStore {
	return &ArtistIndexStore{s: s}
}

func artistIdxKey(artistID, contentKey string) string {
	return prefixArtistIdx + artistID + ":" + contentKey
}

// Put inserts or replaces one index row.
func (st *ArtistIndexStore) Put(ctx context.Context, entry *models.ArtistIndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, artistIdxKey(entry.ArtistID, entry.ContentKey), entry)
	})
}

// Delete removes one index row.
func (st *ArtistIndexStore) Delete(ctx context.Context, artistID, contentKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(artistIdxKey(artistID, contentKey)))
	})
}

// Query returns every row filed under the artist partition.
func (st *ArtistIndexStore) Query(ctx context.Context, artistID string) ([]models.ArtistIndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(prefixArtistIdx + artistID + ":")
	var entries []models.ArtistIndexEntry
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.ArtistIndexEntry
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
