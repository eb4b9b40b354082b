// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

import "time"

// AffinityRecord holds a user's accumulated per-genre scores.
// It is the input to both the incremental feed update and the full rebuild.
type AffinityRecord struct {
	Username    string             `json:"username"`
	GenreScores map[string]float64 `json:"genreScores"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewAffinityRecord returns an empty record for the given user.
func NewAffinityRecord(username string) *AffinityRecord {
	return &AffinityRecord{
		Username:    username,
		GenreScores: make(map[string]float64),
	}
}

// ApplyDelta returns a copy of the record with delta added to the genre's
// running score. Absent genres start from zero. The receiver is not modified,
// which keeps concurrent read-modify-write cycles free of aliasing bugs.
func (r *AffinityRecord) ApplyDelta(genre string, delta float64) *AffinityRecord {
	next := &AffinityRecord{
		Username:    r.Username,
		GenreScores: make(map[string]float64, len(r.GenreScores)+1),
		UpdatedAt:   r.UpdatedAt,
	}
	for g, s := range r.GenreScores {
		next.GenreScores[g] = s
	}
	next.GenreScores[genre] += delta
	return next
}

// ScoreFor computes the linear relevance of an item with the given genres:
// the sum of the user's accumulated scores over the genres present.
// Genres the user has no record for contribute zero.
func (r *AffinityRecord) ScoreFor(genres []string) float64 {
	var total float64
	for _, g := range genres {
		total += r.GenreScores[g]
	}
	return total
}
