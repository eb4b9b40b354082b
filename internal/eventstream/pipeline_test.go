// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package eventstream

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/feed"
	"github.com/mpavic/crescendo/internal/index"
	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/scoring"
	"github.com/mpavic/crescendo/internal/store"
)

type pipeline struct {
	pubsub    message.Publisher
	events    *EventPublisher
	affinity  *store.AffinityStore
	feeds     *store.FeedStore
	catalog   *store.CatalogStore
	directory *store.UserDirectory
	genres    *store.GenreIndexStore
}

// startPipeline wires the full consumer graph on the in-process transport
// and blocks until the router is consuming.
func startPipeline(t *testing.T) *pipeline {
	t.Helper()

	s, err := store.Open(store.Config{Dir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	affinity := store.NewAffinityStore(s)
	feeds := store.NewFeedStore(s)
	catalog := store.NewCatalogStore(s, 0)
	directory := store.NewUserDirectory(s, 0)
	genres := store.NewGenreIndexStore(s)
	artists := store.NewArtistIndexStore(s)
	snapshots := store.NewSnapshotStore(s)

	pubsub := NewInProcessPubSub(watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	events := NewEventPublisher(pubsub, zerolog.Nop())

	cfg := DefaultRouterConfig()
	cfg.RetryMaxRetries = 2
	cfg.RetryInitialInterval = 10 * time.Millisecond
	cfg.RetryMaxInterval = 50 * time.Millisecond

	router, err := NewRouter(cfg, pubsub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("create router: %v", err)
	}

	RegisterHandlers(router, pubsub, Processors{
		Accumulator: scoring.NewAccumulator(affinity, events, zerolog.Nop()),
		Updater:     feed.NewUpdater(directory, affinity, feeds, 10, feed.DefaultNewContentBoost, zerolog.Nop()),
		Rebuilder:   feed.NewRebuilder(affinity, catalog, feeds, 10, zerolog.Nop()),
		Differ:      index.NewDiffer(genres, artists, snapshots, zerolog.Nop()),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := router.Run(ctx); err != nil && ctx.Err() == nil {
			t.Errorf("router: %v", err)
		}
	}()
	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	t.Cleanup(func() { _ = router.Close() })

	return &pipeline{
		pubsub:    pubsub,
		events:    events,
		affinity:  affinity,
		feeds:     feeds,
		catalog:   catalog,
		directory: directory,
		genres:    genres,
	}
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestScoringEventFlowsToRebuiltFeed(t *testing.T) {
	p := startPipeline(t)
	ctx := context.Background()

	rockSong := models.CatalogItem{
		ID: "s1", Type: models.ContentTypeSong, Title: "t",
		Genres: []string{"Rock"}, ArtistIDs: []string{"a1"},
	}
	if err := p.catalog.Put(ctx, &rockSong); err != nil {
		t.Fatalf("put catalog: %v", err)
	}

	event := models.NewScoringEvent("alice", models.ScoringRating, 5, []string{"Rock"})
	if err := p.events.PublishScoring(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// The accumulator applies 5 * 10 = 50 and signals a rebuild, which
	// ranks the catalog and materializes the feed.
	waitFor(t, "affinity accumulation", func() bool {
		rec, err := p.affinity.Get(ctx, "alice")
		return err == nil && rec.GenreScores["Rock"] == 50
	})
	waitFor(t, "feed rebuild", func() bool {
		entries, err := p.feeds.EntriesByUser(ctx, "alice")
		return err == nil && len(entries) == 1 && entries[0].Score == 50
	})
}

func TestContentPublishFansOutToFeeds(t *testing.T) {
	p := startPipeline(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob"} {
		if err := p.directory.Register(ctx, &models.User{Username: u}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	item := models.CatalogItem{
		ID: "s9", Type: models.ContentTypeSong, Title: "t",
		Genres: []string{"Jazz"}, ArtistIDs: []string{"a1"},
	}
	if err := p.events.PublishContentPublished(ctx, models.NewContentPublishedEvent(&item)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, "fan-out to both users", func() bool {
		for _, u := range []string{"alice", "bob"} {
			entries, err := p.feeds.EntriesByUserAndType(ctx, u, models.ContentTypeSong)
			if err != nil || len(entries) != 1 {
				return false
			}
		}
		return true
	})
}

func TestIndexDiffEventMaintainsPartitions(t *testing.T) {
	p := startPipeline(t)
	ctx := context.Background()

	item := models.CatalogItem{
		ID: "s1", Type: models.ContentTypeSong, Title: "t",
		Genres: []string{"Pop", "Rock"}, ArtistIDs: []string{"a1"},
	}
	if err := p.events.PublishIndexDiff(ctx, models.NewContentIndexDiffEvent(item.Type, item.ID, nil, &item)); err != nil {
		t.Fatalf("publish create: %v", err)
	}
	waitFor(t, "index create", func() bool {
		rows, err := p.genres.Query(ctx, "Pop")
		return err == nil && len(rows) == 1
	})

	updated := item
	updated.Genres = []string{"Rock", "Jazz"}
	if err := p.events.PublishIndexDiff(ctx, models.NewContentIndexDiffEvent(item.Type, item.ID, &item, &updated)); err != nil {
		t.Fatalf("publish update: %v", err)
	}
	waitFor(t, "index update", func() bool {
		popRows, err1 := p.genres.Query(ctx, "Pop")
		jazzRows, err2 := p.genres.Query(ctx, "Jazz")
		return err1 == nil && err2 == nil && len(popRows) == 0 && len(jazzRows) == 1
	})
}

func TestMalformedPayloadGoesToPoison(t *testing.T) {
	p := startPipeline(t)
	ctx := context.Background()

	sub, ok := p.pubsub.(message.Subscriber)
	if !ok {
		t.Fatal("pubsub is not a subscriber")
	}
	poisoned, err := sub.Subscribe(ctx, TopicPoison)
	if err != nil {
		t.Fatalf("subscribe poison: %v", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	if err := p.pubsub.Publish(TopicScoring, msg); err != nil {
		t.Fatalf("publish garbage: %v", err)
	}

	select {
	case got := <-poisoned:
		got.Ack()
	case <-time.After(10 * time.Second):
		t.Fatal("malformed payload never reached the poison topic")
	}
}
