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

// Insertion outcomes for metrics.
const (
	outcomeAppended  = "appended"
	outcomeEvicted   = "evicted"
	outcomeDiscarded = "discarded"
	outcomeRefreshed = "refreshed"
)

// DefaultSize is the per-type feed bucket capacity.
const DefaultSize = 10

// DefaultNewContentBoost inflates scores of freshly published content so it
// can displace entries accumulated over time.
const DefaultNewContentBoost = 10

// Updater pushes newly published content into every user's feed it
// qualifies for, without recomputing the rest of the feed.
type Updater struct {
	directory *store.UserDirectory
	affinity  *store.AffinityStore
	feeds     *store.FeedStore
	size      int
	boost     float64
	logger    zerolog.Logger
}

// NewUpdater wires the incremental updater. size and boost fall back to the
// defaults when non-positive.
func NewUpdater(directory *store.UserDirectory, affinity *store.AffinityStore, feeds *store.FeedStore, size int, boost float64, logger zerolog.Logger) *Updater {
	if size <= 0 {
		size = DefaultSize
	}
	if boost <= 0 {
		boost = DefaultNewContentBoost
	}
	return &Updater{
		directory: directory,
		affinity:  affinity,
		feeds:     feeds,
		size:      size,
		boost:     boost,
		logger:    logger.With().Str("component", "feed-updater").Logger(),
	}
}

// Apply fans one published item out across the whole user directory.
// A single user's failure is logged and skipped so it cannot block the
// fan-out for everyone else; a directory enumeration failure aborts.
func (u *Updater) Apply(ctx context.Context, event *models.ContentPublishedEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid content published event: %w", err)
	}
	item := event.Content

	var visited, failed int
	err := u.directory.ForEach(ctx, func(user *models.User) error {
		visited++
		if err := u.applyForUser(ctx, user.Username, &item); err != nil {
			failed++
			u.logger.Error().Err(err).
				Str("username", user.Username).
				Str("content_key", item.ContentKey()).
				Msg("feed insertion failed for user")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate users for %s: %w", item.ContentKey(), err)
	}

	u.logger.Info().
		Str("content_key", item.ContentKey()).
		Int("users", visited).
		Int("failed", failed).
		Msg("content fan-out complete")
	return nil
}

// applyForUser scores the item for one user and inserts it into the
// per-type bucket under the top-K policy. The read of the current bucket
// and the write commit in one transaction, so concurrent insertions for
// the same user serialize through the conflict retry.
func (u *Updater) applyForUser(ctx context.Context, username string, item *models.CatalogItem) error {
	rec, err := u.affinity.GetOrEmpty(ctx, username)
	if err != nil {
		return fmt.Errorf("load affinity: %w", err)
	}
	score := rec.ScoreFor(item.Genres) * u.boost

	return u.feeds.UpdateBucket(ctx, username, item.Type, func(current []models.FeedEntry) ([]models.FeedEntry, []models.FeedEntry, error) {
		entry := models.FeedEntry{
			Username:    username,
			ContentID:   item.ID,
			ContentType: item.Type,
			Score:       score,
			Content:     *item,
			InsertedAt:  time.Now().UTC(),
		}

		// Redelivered publish: refresh the existing row in place.
		for i := range current {
			if current[i].ContentID == item.ID {
				metrics.RecordFeedInsertion(outcomeRefreshed)
				return nil, []models.FeedEntry{entry}, nil
			}
		}

		if len(current) < u.size {
			metrics.RecordFeedInsertion(outcomeAppended)
			return nil, []models.FeedEntry{entry}, nil
		}

		minIdx := minEntryIndex(current)
		if current[minIdx].Score < score {
			metrics.RecordFeedInsertion(outcomeEvicted)
			return []models.FeedEntry{current[minIdx]}, []models.FeedEntry{entry}, nil
		}

		metrics.RecordFeedInsertion(outcomeDiscarded)
		return nil, nil, nil
	})
}
