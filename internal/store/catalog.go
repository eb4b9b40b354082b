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

// CatalogStore is the authoritative content table. Keys are
// "catalog:{contentType}-{contentId}", so per-type full scans are prefix
// iterations over "catalog:{contentType}-".
type CatalogStore struct {
	s        *Store
	pageSize int
}

// NewCatalogStore returns a catalog repository on the shared store.
func NewCatalogStore(s *Store, pageSize int) *CatalogStore {
	if pageSize <= 0 {
		pageSize = DefaultScanPageSize
	}
	return &CatalogStore{s: s, pageSize: pageSize}
}

func catalogKey(contentKey string) string {
	return prefixCatalog + contentKey
}

// Put inserts or replaces a catalog item.
func (st *CatalogStore) Put(ctx context.Context, item *models.CatalogItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, catalogKey(item.ContentKey()), item)
	})
}

// Get returns the item with the given type and ID, or ErrNotFound.
func (st *CatalogStore) Get(ctx context.Context, contentType models.ContentType, contentID string) (*models.CatalogItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var item models.CatalogItem
	err := st.s.view(func(txn *badger.Txn) error {
		return getJSON(txn, catalogKey(models.ContentKey(contentType, contentID)), &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes a catalog item. Absent items delete cleanly.
func (st *CatalogStore) Delete(ctx context.Context, contentType models.ContentType, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return st.s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(catalogKey(models.ContentKey(contentType, contentID))))
	})
}

// ScanType returns one page of items of the given type starting after
// cursor (exclusive; empty cursor starts from the beginning). The returned
// cursor is empty when the scan is exhausted. Full-catalog consumers loop
// pages so no single transaction holds the whole table.
func (st *CatalogStore) ScanType(ctx context.Context, contentType models.ContentType, cursor string) ([]models.CatalogItem, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	prefix := []byte(prefixCatalog + string(contentType) + "-")
	start := prefix
	if cursor != "" {
		// Seek past the cursor key itself.
		start = append([]byte(cursor), 0)
	}

	var (
		items []models.CatalogItem
		next  string
	)
	err := st.s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if len(items) == st.pageSize {
				next = items[len(items)-1].ContentKey()
				return nil
			}
			var item models.CatalogItem
			if err := getJSONItem(it.Item(), &item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if next != "" {
		next = catalogKey(next)
	}
	return items, next, nil
}

// ForEach streams every item of the given type through fn, paging
// transparently. fn returning an error stops the scan.
func (st *CatalogStore) ForEach(ctx context.Context, contentType models.ContentType, fn func(*models.CatalogItem) error) error {
	cursor := ""
	for {
		items, next, err := st.ScanType(ctx, contentType, cursor)
		if err != nil {
			return err
		}
		for i := range items {
			if err := fn(&items[i]); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}
