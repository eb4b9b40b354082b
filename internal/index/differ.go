// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package index

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/metrics"
	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

// Differ reconciles the inverted indexes with content mutations. It diffs
// the new content against its own last-applied snapshot, not against the
// caller's idea of the old state, so replayed or reordered events converge
// instead of drifting.
type Differ struct {
	genres    *store.GenreIndexStore
	artists   *store.ArtistIndexStore
	snapshots *store.SnapshotStore
	logger    zerolog.Logger
}

// NewDiffer wires the differ to its index and snapshot stores.
func NewDiffer(genres *store.GenreIndexStore, artists *store.ArtistIndexStore, snapshots *store.SnapshotStore, logger zerolog.Logger) *Differ {
	return &Differ{
		genres:    genres,
		artists:   artists,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "index-differ").Logger(),
	}
}

// Apply reconciles one content mutation. Only partitions whose membership
// actually changed are touched: an update that leaves genres and artists
// alone performs zero index writes, and applying the same event twice is a
// no-op because the second pass diffs against the refreshed snapshot.
func (d *Differ) Apply(ctx context.Context, event *models.ContentIndexDiffEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid index diff event: %w", err)
	}
	contentKey := event.ContentKey()

	baseline, err := d.baseline(ctx, contentKey, event)
	if err != nil {
		return err
	}

	// Identical content means a replayed or echoed event: nothing to do.
	if baseline != nil && event.NewContent != nil && reflect.DeepEqual(*baseline, *event.NewContent) {
		d.logger.Debug().Str("content_key", contentKey).Msg("diff is a no-op")
		return nil
	}

	var prevGenres, prevArtists map[string]struct{}
	if baseline != nil {
		prevGenres = baseline.GenreSet()
		prevArtists = baseline.ArtistIDSet()
	}
	var nextGenres, nextArtists map[string]struct{}
	if event.NewContent != nil {
		nextGenres = event.NewContent.GenreSet()
		nextArtists = event.NewContent.ArtistIDSet()
	}

	addGenres, removeGenres := diffSets(prevGenres, nextGenres)
	addArtists, removeArtists := diffSets(prevArtists, nextArtists)

	for _, genre := range removeGenres {
		if err := d.genres.Delete(ctx, genre, contentKey); err != nil {
			return fmt.Errorf("remove %s from genre %s: %w", contentKey, genre, err)
		}
		metrics.RecordIndexMutation("genre", "remove")
	}
	for _, genre := range addGenres {
		if err := d.genres.Put(ctx, models.NewGenreIndexEntry(genre, event.NewContent)); err != nil {
			return fmt.Errorf("add %s to genre %s: %w", contentKey, genre, err)
		}
		metrics.RecordIndexMutation("genre", "add")
	}
	for _, artistID := range removeArtists {
		if err := d.artists.Delete(ctx, artistID, contentKey); err != nil {
			return fmt.Errorf("remove %s from artist %s: %w", contentKey, artistID, err)
		}
		metrics.RecordIndexMutation("artist", "remove")
	}
	for _, artistID := range addArtists {
		if err := d.artists.Put(ctx, models.NewArtistIndexEntry(artistID, event.NewContent)); err != nil {
			return fmt.Errorf("add %s to artist %s: %w", contentKey, artistID, err)
		}
		metrics.RecordIndexMutation("artist", "add")
	}

	// Unchanged partitions still need the denormalized copy refreshed when
	// non-membership fields (title, details) changed.
	if event.NewContent != nil {
		if err := d.refreshUnchanged(ctx, event.NewContent, prevGenres, nextGenres, prevArtists, nextArtists); err != nil {
			return err
		}
	}

	if err := d.commitSnapshot(ctx, contentKey, event.NewContent); err != nil {
		return err
	}

	d.logger.Debug().
		Str("content_key", contentKey).
		Int("genres_added", len(addGenres)).
		Int("genres_removed", len(removeGenres)).
		Int("artists_added", len(addArtists)).
		Int("artists_removed", len(removeArtists)).
		Msg("indexes reconciled")
	return nil
}

// baseline prefers the stored snapshot over the event's old content.
// First contact with a key falls back to the caller-supplied state.
func (d *Differ) baseline(ctx context.Context, contentKey string, event *models.ContentIndexDiffEvent) (*models.CatalogItem, error) {
	snap, err := d.snapshots.Get(ctx, contentKey)
	if errors.Is(err, store.ErrNotFound) {
		return event.OldContent, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", contentKey, err)
	}
	return snap, nil
}

// refreshUnchanged rewrites rows in partitions present both before and
// after, so index reads serve the current denormalized item.
func (d *Differ) refreshUnchanged(ctx context.Context, item *models.CatalogItem, prevGenres, nextGenres, prevArtists, nextArtists map[string]struct{}) error {
	for genre := range nextGenres {
		if _, existed := prevGenres[genre]; !existed {
			continue
		}
		if err := d.genres.Put(ctx, models.NewGenreIndexEntry(genre, item)); err != nil {
			return fmt.Errorf("refresh genre %s row: %w", genre, err)
		}
	}
	for artistID := range nextArtists {
		if _, existed := prevArtists[artistID]; !existed {
			continue
		}
		if err := d.artists.Put(ctx, models.NewArtistIndexEntry(artistID, item)); err != nil {
			return fmt.Errorf("refresh artist %s row: %w", artistID, err)
		}
	}
	return nil
}

func (d *Differ) commitSnapshot(ctx context.Context, contentKey string, newContent *models.CatalogItem) error {
	if newContent == nil {
		if err := d.snapshots.Delete(ctx, contentKey); err != nil {
			return fmt.Errorf("drop snapshot %s: %w", contentKey, err)
		}
		return nil
	}
	if err := d.snapshots.Put(ctx, newContent); err != nil {
		return fmt.Errorf("store snapshot %s: %w", contentKey, err)
	}
	return nil
}
