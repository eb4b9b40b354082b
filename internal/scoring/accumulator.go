// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package scoring

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

// RebuildSignaler enqueues a feed recomputation for one user.
// The event publisher satisfies this; tests substitute a recorder.
type RebuildSignaler interface {
	PublishFeedRebuild(ctx context.Context, signal *models.FeedRebuildSignal) error
}

// Accumulator folds scoring events into affinity records.
type Accumulator struct {
	affinity *store.AffinityStore
	signals  RebuildSignaler
	logger   zerolog.Logger
}

// NewAccumulator wires the accumulator to its store and downstream signal.
func NewAccumulator(affinity *store.AffinityStore, signals RebuildSignaler, logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		affinity: affinity,
		signals:  signals,
		logger:   logger.With().Str("component", "accumulator").Logger(),
	}
}

// Process applies one scoring event: delta = incomingScore * weight, added
// to every genre the event names, in a single optimistic read-modify-write.
// Delivery is at-least-once upstream, so a redelivered event re-applies its
// delta; callers that need exact-once semantics deduplicate before this
// point. After the write lands, a rebuild signal for the user is enqueued.
func (a *Accumulator) Process(ctx context.Context, event *models.ScoringEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid scoring event: %w", err)
	}

	weight, err := Weight(event.Type)
	if err != nil {
		return err
	}
	delta := event.IncomingScore * weight

	rec, err := a.affinity.Apply(ctx, event.Username, func(rec *models.AffinityRecord) (*models.AffinityRecord, error) {
		for _, genre := range event.Genres {
			rec = rec.ApplyDelta(genre, delta)
		}
		return rec, nil
	})
	if err != nil {
		return fmt.Errorf("accumulate scores for %s: %w", event.Username, err)
	}

	a.logger.Debug().
		Str("username", event.Username).
		Str("type", string(event.Type)).
		Float64("delta", delta).
		Int("genres", len(event.Genres)).
		Int("tracked_genres", len(rec.GenreScores)).
		Msg("affinity updated")

	signal := models.NewFeedRebuildSignal(event.Username, "affinity-change")
	if err := a.signals.PublishFeedRebuild(ctx, signal); err != nil {
		// The write landed. Redelivering the event now would double-apply
		// the delta, so do not fail the message; a lost signal only delays
		// the rebuild until the user's next affinity change.
		a.logger.Error().Err(err).
			Str("username", event.Username).
			Msg("rebuild signal dropped")
	}

	return nil
}
