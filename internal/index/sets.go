// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package index keeps the genre and artist inverted indexes consistent with
// catalog mutations by applying minimal set diffs.
package index

import "sort"

// diffSets returns the members to add (in next but not prev) and to remove
// (in prev but not next), sorted for deterministic application order.
func diffSets(prev, next map[string]struct{}) (added, removed []string) {
	for m := range next {
		if _, ok := prev[m]; !ok {
			added = append(added, m)
		}
	}
	for m := range prev {
		if _, ok := next[m]; !ok {
			removed = append(removed, m)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
