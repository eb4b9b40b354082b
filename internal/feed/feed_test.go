// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

type fixture struct {
	store     *store.Store
	affinity  *store.AffinityStore
	feeds     *store.FeedStore
	catalog   *store.CatalogStore
	directory *store.UserDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(store.Config{Dir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return &fixture{
		store:     s,
		affinity:  store.NewAffinityStore(s),
		feeds:     store.NewFeedStore(s),
		catalog:   store.NewCatalogStore(s, 0),
		directory: store.NewUserDirectory(s, 0),
	}
}

func (f *fixture) setAffinity(t *testing.T, username string, scores map[string]float64) {
	t.Helper()
	rec := models.NewAffinityRecord(username)
	for g, s := range scores {
		rec.GenreScores[g] = s
	}
	if err := f.affinity.Put(context.Background(), rec); err != nil {
		t.Fatalf("put affinity: %v", err)
	}
}

func song(id string, genres ...string) models.CatalogItem {
	return models.CatalogItem{
		ID:        id,
		Type:      models.ContentTypeSong,
		Title:     "song " + id,
		Genres:    genres,
		ArtistIDs: []string{"a1"},
	}
}

func artist(id string, genres ...string) models.CatalogItem {
	return models.CatalogItem{
		ID:     id,
		Type:   models.ContentTypeArtist,
		Title:  "artist " + id,
		Genres: genres,
	}
}

func TestTopKAccumulator(t *testing.T) {
	acc := newTopK(3)
	for i, score := range []float64{5, 1, 9, 3, 7, 0} {
		acc.add(RankedItem{Item: song(fmt.Sprintf("s%d", i)), Score: score})
	}

	ranked := acc.ranked()
	if len(ranked) != 3 {
		t.Fatalf("kept %d items, want 3", len(ranked))
	}
	wantScores := []float64{9, 7, 5}
	for i, want := range wantScores {
		if ranked[i].Score != want {
			t.Errorf("ranked[%d].Score = %v, want %v", i, ranked[i].Score, want)
		}
	}
}

func TestTopKKeepsZeroScores(t *testing.T) {
	acc := newTopK(5)
	acc.add(RankedItem{Item: song("s0"), Score: 0})
	acc.add(RankedItem{Item: song("s1"), Score: 0})

	if got := len(acc.ranked()); got != 2 {
		t.Errorf("kept %d zero-score items, want 2", got)
	}
}

// A user with Rock affinity 50 sees a new Rock song boosted to 500.
// The song must evict a 400-point minimum but lose to a 600-point one.
func TestIncrementalInsertionPolicy(t *testing.T) {
	tests := []struct {
		name        string
		minScore    float64
		wantPresent bool
	}{
		{"boosted score beats minimum", 400, true},
		{"boosted score loses to minimum", 600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if err := f.directory.Register(ctx, &models.User{Username: "alice"}); err != nil {
				t.Fatalf("register: %v", err)
			}
			f.setAffinity(t, "alice", map[string]float64{"Rock": 50})

			// Fill the song bucket: one entry at the contested minimum,
			// the rest safely above it.
			const size = 5
			for i := 0; i < size; i++ {
				score := 1000.0 + float64(i)
				if i == 0 {
					score = tt.minScore
				}
				err := f.feeds.Put(ctx, &models.FeedEntry{
					Username:    "alice",
					ContentID:   fmt.Sprintf("old%d", i),
					ContentType: models.ContentTypeSong,
					Score:       score,
				})
				if err != nil {
					t.Fatalf("seed feed: %v", err)
				}
			}

			updater := NewUpdater(f.directory, f.affinity, f.feeds, size, DefaultNewContentBoost, zerolog.Nop())
			newSong := song("fresh", "Rock")
			if err := updater.Apply(ctx, models.NewContentPublishedEvent(&newSong)); err != nil {
				t.Fatalf("apply: %v", err)
			}

			bucket, err := f.feeds.EntriesByUserAndType(ctx, "alice", models.ContentTypeSong)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(bucket) != size {
				t.Fatalf("bucket size = %d, want %d", len(bucket), size)
			}

			var present, minSurvived bool
			for _, e := range bucket {
				if e.ContentID == "fresh" {
					present = true
					if e.Score != 500 {
						t.Errorf("inserted score = %v, want 500", e.Score)
					}
				}
				if e.ContentID == "old0" {
					minSurvived = true
				}
			}
			if present != tt.wantPresent {
				t.Errorf("new song present = %v, want %v", present, tt.wantPresent)
			}
			if minSurvived == tt.wantPresent {
				t.Errorf("minimum survived = %v, want %v", minSurvived, !tt.wantPresent)
			}
		})
	}
}

func TestIncrementalAppendsWhenBucketHasRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.directory.Register(ctx, &models.User{Username: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	// No affinity record at all: the item still lands, at score 0.
	updater := NewUpdater(f.directory, f.affinity, f.feeds, 5, DefaultNewContentBoost, zerolog.Nop())
	newSong := song("fresh", "Rock")
	if err := updater.Apply(ctx, models.NewContentPublishedEvent(&newSong)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	bucket, err := f.feeds.EntriesByUserAndType(ctx, "alice", models.ContentTypeSong)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bucket) != 1 || bucket[0].ContentID != "fresh" {
		t.Fatalf("bucket = %+v, want single fresh entry", bucket)
	}
	if bucket[0].Score != 0 {
		t.Errorf("score without affinity = %v, want 0", bucket[0].Score)
	}
}

func TestIncrementalRedeliveryRefreshesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.directory.Register(ctx, &models.User{Username: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	updater := NewUpdater(f.directory, f.affinity, f.feeds, 5, DefaultNewContentBoost, zerolog.Nop())

	newSong := song("fresh", "Rock")
	event := models.NewContentPublishedEvent(&newSong)
	if err := updater.Apply(ctx, event); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := updater.Apply(ctx, event); err != nil {
		t.Fatalf("redelivered apply: %v", err)
	}

	bucket, err := f.feeds.EntriesByUserAndType(ctx, "alice", models.ContentTypeSong)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bucket) != 1 {
		t.Errorf("redelivery duplicated the entry: bucket size = %d", len(bucket))
	}
}

// A user with Jazz affinity 5 and a three-artist catalog gets all three
// artists ranked, the Jazz one first and the others at score 0.
func TestRebuildRanksWholeCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, a := range []models.CatalogItem{
		artist("a1", "Jazz"),
		artist("a2", "Rock"),
		artist("a3", "Pop"),
	} {
		item := a
		if err := f.catalog.Put(ctx, &item); err != nil {
			t.Fatalf("put catalog: %v", err)
		}
	}
	f.setAffinity(t, "alice", map[string]float64{"Jazz": 5})

	rebuilder := NewRebuilder(f.affinity, f.catalog, f.feeds, 10, zerolog.Nop())
	if err := rebuilder.Rebuild(ctx, "alice"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	bucket, err := f.feeds.EntriesByUserAndType(ctx, "alice", models.ContentTypeArtist)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bucket) != 3 {
		t.Fatalf("artist bucket = %d entries, want 3 (zero-overlap items must rank)", len(bucket))
	}

	SortEntries(bucket)
	if bucket[0].ContentID != "a1" || bucket[0].Score != 5 {
		t.Errorf("top entry = %s score %v, want a1 score 5", bucket[0].ContentID, bucket[0].Score)
	}
	for _, e := range bucket[1:] {
		if e.Score != 0 {
			t.Errorf("entry %s score = %v, want 0", e.ContentID, e.Score)
		}
	}
}

func TestRebuildEnforcesTopKPerType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const k = 3
	for i := 0; i < 8; i++ {
		item := song(fmt.Sprintf("s%d", i), "Rock")
		if err := f.catalog.Put(ctx, &item); err != nil {
			t.Fatalf("put catalog: %v", err)
		}
	}
	f.setAffinity(t, "alice", map[string]float64{"Rock": 7})

	rebuilder := NewRebuilder(f.affinity, f.catalog, f.feeds, k, zerolog.Nop())
	if err := rebuilder.Rebuild(ctx, "alice"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	bucket, err := f.feeds.EntriesByUserAndType(ctx, "alice", models.ContentTypeSong)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bucket) != k {
		t.Errorf("song bucket = %d entries, want %d", len(bucket), k)
	}
	for _, e := range bucket {
		if e.Score != 7 {
			t.Errorf("entry %s score = %v, want 7", e.ContentID, e.Score)
		}
	}
}

func TestRebuildReplacesStaleEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := song("gone", "Rock")
	err := f.feeds.Put(ctx, &models.FeedEntry{
		Username: "alice", ContentID: stale.ID, ContentType: stale.Type, Score: 999, Content: stale,
	})
	if err != nil {
		t.Fatalf("seed stale: %v", err)
	}

	kept := song("kept", "Rock")
	if err := f.catalog.Put(ctx, &kept); err != nil {
		t.Fatalf("put catalog: %v", err)
	}

	rebuilder := NewRebuilder(f.affinity, f.catalog, f.feeds, 10, zerolog.Nop())
	if err := rebuilder.Rebuild(ctx, "alice"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	bucket, err := f.feeds.EntriesByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(bucket) != 1 || bucket[0].ContentID != "kept" {
		t.Errorf("feed after rebuild = %+v, want only the cataloged item", bucket)
	}
}
