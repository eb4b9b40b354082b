// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package scoring

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []*models.FeedRebuildSignal
}

func (r *signalRecorder) PublishFeedRebuild(_ context.Context, s *models.FeedRebuildSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
	return nil
}

func (r *signalRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

func newTestAccumulator(t *testing.T) (*Accumulator, *store.AffinityStore, *signalRecorder) {
	t.Helper()
	s, err := store.Open(store.Config{Dir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	affinity := store.NewAffinityStore(s)
	rec := &signalRecorder{}
	return NewAccumulator(affinity, rec, zerolog.Nop()), affinity, rec
}

func TestProcessAppliesWeights(t *testing.T) {
	tests := []struct {
		name      string
		eventType models.ScoringEventType
		incoming  float64
		want      float64
	}{
		{"activity", models.ScoringActivity, 1, 1},
		{"rating", models.ScoringRating, 5, 50},
		{"artist subscribe", models.ScoringArtistSub, 1, 1000},
		{"genre subscribe", models.ScoringGenreSub, 1, 500},
		{"artist unsubscribe", models.ScoringArtistSub, -1, -1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, affinity, _ := newTestAccumulator(t)
			ctx := context.Background()

			event := models.NewScoringEvent("alice", tt.eventType, tt.incoming, []string{"Rock"})
			if err := acc.Process(ctx, event); err != nil {
				t.Fatalf("process: %v", err)
			}

			rec, err := affinity.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got := rec.GenreScores["Rock"]; got != tt.want {
				t.Errorf("Rock = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessAppliesDeltaToEveryGenre(t *testing.T) {
	acc, affinity, _ := newTestAccumulator(t)
	ctx := context.Background()

	event := models.NewScoringEvent("alice", models.ScoringRating, 4, []string{"Rock", "Blues"})
	if err := acc.Process(ctx, event); err != nil {
		t.Fatalf("process: %v", err)
	}

	rec, err := affinity.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, genre := range []string{"Rock", "Blues"} {
		if got := rec.GenreScores[genre]; got != 40 {
			t.Errorf("%s = %v, want 40", genre, got)
		}
	}
}

func TestProcessOrderIndependent(t *testing.T) {
	events := []*models.ScoringEvent{
		models.NewScoringEvent("u", models.ScoringActivity, 1, []string{"Rock"}),
		models.NewScoringEvent("u", models.ScoringGenreSub, 1, []string{"Jazz"}),
		models.NewScoringEvent("u", models.ScoringRating, 3, []string{"Rock", "Jazz"}),
		models.NewScoringEvent("u", models.ScoringGenreSub, -1, []string{"Jazz"}),
	}

	run := func(order []int) map[string]float64 {
		acc, affinity, _ := newTestAccumulator(t)
		ctx := context.Background()
		for _, i := range order {
			if err := acc.Process(ctx, events[i]); err != nil {
				t.Fatalf("process: %v", err)
			}
		}
		rec, err := affinity.Get(ctx, "u")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		return rec.GenreScores
	}

	forward := run([]int{0, 1, 2, 3})
	shuffled := run([]int{3, 1, 0, 2})

	for genre, want := range forward {
		if got := shuffled[genre]; got != want {
			t.Errorf("genre %s: order changed result, %v vs %v", genre, got, want)
		}
	}
}

func TestProcessSignalsRebuild(t *testing.T) {
	acc, _, signals := newTestAccumulator(t)

	event := models.NewScoringEvent("alice", models.ScoringActivity, 1, []string{"Rock"})
	if err := acc.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}

	if signals.count() != 1 {
		t.Errorf("rebuild signals = %d, want 1", signals.count())
	}
	if signals.signals[0].Username != "alice" {
		t.Errorf("signal username = %q, want alice", signals.signals[0].Username)
	}
}

func TestProcessRejectsMalformedEvents(t *testing.T) {
	acc, _, signals := newTestAccumulator(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		event *models.ScoringEvent
	}{
		{"missing username", models.NewScoringEvent("", models.ScoringActivity, 1, []string{"Rock"})},
		{"unknown type", models.NewScoringEvent("alice", "boost", 1, []string{"Rock"})},
		{"no genres", models.NewScoringEvent("alice", models.ScoringActivity, 1, nil)},
		{"delimiter in username", models.NewScoringEvent("alice:song", models.ScoringActivity, 1, []string{"Rock"})},
		{"delimiter in genre", models.NewScoringEvent("alice", models.ScoringActivity, 1, []string{"Ro:ck"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := acc.Process(ctx, tt.event); err == nil {
				t.Error("Process() accepted a malformed event")
			}
		})
	}

	if signals.count() != 0 {
		t.Errorf("malformed events produced %d rebuild signals", signals.count())
	}
}
