// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package feed maintains the materialized per-user feeds: the incremental
// updater pushes newly published content into existing feeds, the rebuilder
// recomputes a feed from scratch against the whole catalog.
package feed

import (
	"sort"

	"github.com/mpavic/crescendo/internal/models"
)

// RankedItem pairs a catalog item with its relevance for one user.
type RankedItem struct {
	Item  models.CatalogItem
	Score float64
}

// topK accumulates the k highest-scoring items from a stream without
// holding more than k of them. Zero-score items compete like any other,
// so a user with no affinity overlap still ends up with a full feed.
type topK struct {
	k     int
	items []RankedItem
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]RankedItem, 0, k)}
}

// add offers one item. When the bucket is full the current minimum is
// replaced only by a strictly higher score, so earlier items win ties.
func (t *topK) add(item RankedItem) {
	if t.k <= 0 {
		return
	}
	if len(t.items) < t.k {
		t.items = append(t.items, item)
		return
	}
	minIdx := minScoreIndex(t.items)
	if item.Score > t.items[minIdx].Score {
		t.items[minIdx] = item
	}
}

// ranked returns the accumulated items sorted by score descending.
func (t *topK) ranked() []RankedItem {
	sort.SliceStable(t.items, func(i, j int) bool {
		return t.items[i].Score > t.items[j].Score
	})
	return t.items
}

// minScoreIndex returns the index of the lowest-scoring item.
// The first minimum wins so eviction order is deterministic.
func minScoreIndex(items []RankedItem) int {
	minIdx := 0
	for i := 1; i < len(items); i++ {
		if items[i].Score < items[minIdx].Score {
			minIdx = i
		}
	}
	return minIdx
}

// minEntryIndex returns the index of the lowest-scoring feed entry,
// or -1 for an empty bucket.
func minEntryIndex(entries []models.FeedEntry) int {
	if len(entries) == 0 {
		return -1
	}
	minIdx := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].Score < entries[minIdx].Score {
			minIdx = i
		}
	}
	return minIdx
}

// SortEntries orders feed entries by score descending in place.
func SortEntries(entries []models.FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
