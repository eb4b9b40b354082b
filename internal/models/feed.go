// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

import "time"

// FeedEntry is one row of a user's materialized feed: a denormalized
// catalog item with the relevance score it was ranked with.
type FeedEntry struct {
	Username    string      `json:"username"`
	ContentID   string      `json:"contentId"`
	ContentType ContentType `json:"contentType"`
	Score       float64     `json:"score"`
	Content     CatalogItem `json:"content"`
	InsertedAt  time.Time   `json:"insertedAt"`
}
