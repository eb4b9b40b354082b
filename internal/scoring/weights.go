// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package scoring implements the score accumulator: it folds weighted
// interaction events into per-user genre affinity records and signals the
// feed rebuilder after each successful write.
package scoring

import (
	"fmt"

	"github.com/mpavic/crescendo/internal/models"
)

// Fixed multipliers per interaction type. A subscription outweighs any
// realistic volume of listens so explicit intent dominates the ranking;
// unsubscribes arrive as negative incoming scores through the same table.
const (
	weightActivity  = 1
	weightRating    = 10
	weightArtistSub = 1000
	weightGenreSub  = 500
)

var weights = map[models.ScoringEventType]float64{
	models.ScoringActivity:  weightActivity,
	models.ScoringRating:    weightRating,
	models.ScoringArtistSub: weightArtistSub,
	models.ScoringGenreSub:  weightGenreSub,
}

// Weight returns the multiplier for the given event type.
func Weight(t models.ScoringEventType) (float64, error) {
	w, ok := weights[t]
	if !ok {
		return 0, fmt.Errorf("no weight for scoring event type %q", t)
	}
	return w, nil
}
