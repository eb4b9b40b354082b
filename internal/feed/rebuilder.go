// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/metrics"
	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

// Rebuilder recomputes one user's entire feed against the full catalog.
// It is the authoritative path: whatever drift the incremental updater
// accumulates, the next rebuild converges the feed to the true top K.
type Rebuilder struct {
	affinity *store.AffinityStore
	catalog  *store.CatalogStore
	feeds    *store.FeedStore
	size     int
	logger   zerolog.Logger
}

// NewRebuilder wires the full rebuilder. size falls back to DefaultSize.
func NewRebuilder(affinity *store.AffinityStore, catalog *store.CatalogStore, feeds *store.FeedStore, size int, logger zerolog.Logger) *Rebuilder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Rebuilder{
		affinity: affinity,
		catalog:  catalog,
		feeds:    feeds,
		size:     size,
		logger:   logger.With().Str("component", "feed-rebuilder").Logger(),
	}
}

// Rebuild scores every catalog item for the user, keeps the top K per
// content type (zero-overlap items rank at score 0, they are not excluded),
// and atomically replaces the stored feed. A user with no affinity record
// gets a uniform zero-score feed rather than an empty one.
func (r *Rebuilder) Rebuild(ctx context.Context, username string) error {
	start := time.Now()

	rec, err := r.affinity.GetOrEmpty(ctx, username)
	if err != nil {
		metrics.RecordFeedRebuild("error", time.Since(start))
		return fmt.Errorf("load affinity for %s: %w", username, err)
	}

	now := time.Now().UTC()
	var entries []models.FeedEntry
	for _, contentType := range models.ContentTypes {
		acc := newTopK(r.size)
		err := r.catalog.ForEach(ctx, contentType, func(item *models.CatalogItem) error {
			acc.add(RankedItem{Item: *item, Score: rec.ScoreFor(item.Genres)})
			return nil
		})
		if err != nil {
			metrics.RecordFeedRebuild("error", time.Since(start))
			return fmt.Errorf("scan %s catalog: %w", contentType, err)
		}

		for _, ranked := range acc.ranked() {
			entries = append(entries, models.FeedEntry{
				Username:    username,
				ContentID:   ranked.Item.ID,
				ContentType: ranked.Item.Type,
				Score:       ranked.Score,
				Content:     ranked.Item,
				InsertedAt:  now,
			})
		}
	}

	if err := r.feeds.Replace(ctx, username, entries); err != nil {
		metrics.RecordFeedRebuild("error", time.Since(start))
		return fmt.Errorf("replace feed for %s: %w", username, err)
	}

	metrics.RecordFeedRebuild("success", time.Since(start))
	r.logger.Debug().
		Str("username", username).
		Int("entries", len(entries)).
		Dur("elapsed", time.Since(start)).
		Msg("feed rebuilt")
	return nil
}
