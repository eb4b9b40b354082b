// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

import (
	"math"
	"testing"
)

func TestApplyDeltaDoesNotMutateReceiver(t *testing.T) {
	rec := NewAffinityRecord("alice")
	rec.GenreScores["Rock"] = 40

	next := rec.ApplyDelta("Rock", 10)

	if rec.GenreScores["Rock"] != 40 {
		t.Errorf("receiver mutated: Rock = %v, want 40", rec.GenreScores["Rock"])
	}
	if next.GenreScores["Rock"] != 50 {
		t.Errorf("Rock = %v, want 50", next.GenreScores["Rock"])
	}
}

func TestApplyDeltaCommutes(t *testing.T) {
	deltas := []struct {
		genre string
		delta float64
	}{
		{"Rock", 10},
		{"Jazz", 500},
		{"Rock", -10},
		{"Pop", 1000},
		{"Jazz", 1},
	}

	forward := NewAffinityRecord("u")
	for _, d := range deltas {
		forward = forward.ApplyDelta(d.genre, d.delta)
	}

	backward := NewAffinityRecord("u")
	for i := len(deltas) - 1; i >= 0; i-- {
		backward = backward.ApplyDelta(deltas[i].genre, deltas[i].delta)
	}

	for g, want := range forward.GenreScores {
		if got := backward.GenreScores[g]; math.Abs(got-want) > 1e-9 {
			t.Errorf("genre %s: order changed result, %v vs %v", g, got, want)
		}
	}
}

func TestScoreFor(t *testing.T) {
	rec := NewAffinityRecord("alice")
	rec.GenreScores["Rock"] = 50
	rec.GenreScores["Jazz"] = 5

	tests := []struct {
		name   string
		genres []string
		want   float64
	}{
		{"single overlap", []string{"Rock"}, 50},
		{"multi overlap", []string{"Rock", "Jazz"}, 55},
		{"no overlap", []string{"Classical"}, 0},
		{"partial overlap", []string{"Jazz", "Classical"}, 5},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rec.ScoreFor(tt.genres); got != tt.want {
				t.Errorf("ScoreFor(%v) = %v, want %v", tt.genres, got, tt.want)
			}
		})
	}
}
