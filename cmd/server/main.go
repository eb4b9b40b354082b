// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Command server runs the catalog API and the event pipeline that maintains
// the materialized views: genre affinities, per-user feeds, and the genre
// and artist inverted indexes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/api"
	"github.com/mpavic/crescendo/internal/config"
	"github.com/mpavic/crescendo/internal/eventstream"
	"github.com/mpavic/crescendo/internal/feed"
	"github.com/mpavic/crescendo/internal/index"
	"github.com/mpavic/crescendo/internal/logging"
	"github.com/mpavic/crescendo/internal/scoring"
	"github.com/mpavic/crescendo/internal/store"
	"github.com/mpavic/crescendo/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logger := logging.Logger()
	logger.Info().
		Str("transport", cfg.Events.Transport).
		Str("storage_dir", cfg.Storage.Dir).
		Msg("starting crescendo")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(store.Config{
		Dir:          cfg.Storage.Dir,
		ScanPageSize: cfg.Storage.ScanPageSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error().Err(err).Msg("store close failed")
		}
	}()

	affinity := store.NewAffinityStore(s)
	feeds := store.NewFeedStore(s)
	catalog := store.NewCatalogStore(s, cfg.Storage.ScanPageSize)
	directory := store.NewUserDirectory(s, cfg.Storage.ScanPageSize)
	genreIdx := store.NewGenreIndexStore(s)
	artistIdx := store.NewArtistIndexStore(s)
	snapshots := store.NewSnapshotStore(s)
	subscriptions := store.NewSubscriptionStore(s)
	ratings := store.NewRatingStore(s)

	slogger := slog.New(logging.NewSlogHandlerWithLogger(logger))
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())

	transport, err := openTransport(ctx, cfg, tree, logger)
	if err != nil {
		return err
	}
	defer transport.close(logger)

	events := eventstream.NewEventPublisher(transport.publisher, logger)

	router, err := eventstream.NewRouter(eventstream.RouterConfig{
		CloseTimeout:         cfg.Events.Router.CloseTimeout,
		RetryMaxRetries:      cfg.Events.Router.RetryMaxRetries,
		RetryInitialInterval: cfg.Events.Router.RetryInitialInterval,
		RetryMaxInterval:     cfg.Events.Router.RetryMaxInterval,
		RetryMultiplier:      cfg.Events.Router.RetryMultiplier,
		ThrottlePerSecond:    cfg.Events.Router.ThrottlePerSecond,
		PoisonTopic:          cfg.Events.Router.PoisonTopic,
	}, transport.publisher, eventstream.NewWatermillLogger(logger))
	if err != nil {
		return fmt.Errorf("create event router: %w", err)
	}

	eventstream.RegisterHandlers(router, transport.subscriber, eventstream.Processors{
		Accumulator: scoring.NewAccumulator(affinity, events, logger),
		Updater:     feed.NewUpdater(directory, affinity, feeds, cfg.Feed.Size, cfg.Feed.NewContentBoost, logger),
		Rebuilder:   feed.NewRebuilder(affinity, catalog, feeds, cfg.Feed.Size, logger),
		Differ:      index.NewDiffer(genreIdx, artistIdx, snapshots, logger),
	})

	handler := api.NewHandler(api.Stores{
		Catalog:       catalog,
		Feeds:         feeds,
		GenreIndex:    genreIdx,
		ArtistIndex:   artistIdx,
		Subscriptions: subscriptions,
		Ratings:       ratings,
		Directory:     directory,
	}, events, cfg.API, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree.AddEventService(supervisor.NewRouterService(router, logger))
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout, logger))

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// transport bundles the publisher and subscriber of the selected event
// transport with whatever needs closing behind them.
type transport struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nats.Conn
}

func (t *transport) close(logger zerolog.Logger) {
	if err := t.publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("publisher close failed")
	}
	if closer, ok := t.subscriber.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error().Err(err).Msg("subscriber close failed")
		}
	}
	if t.conn != nil {
		t.conn.Close()
	}
}

// openTransport builds the configured event transport. The in-process
// channel is the default; NATS JetStream provides durable at-least-once
// delivery, optionally on an embedded broker supervised by the tree.
func openTransport(ctx context.Context, cfg *config.Config, tree *supervisor.Tree, logger zerolog.Logger) (*transport, error) {
	wmLogger := eventstream.NewWatermillLogger(logger)

	if cfg.Events.Transport == config.TransportChannel {
		pubsub := eventstream.NewInProcessPubSub(wmLogger)
		return &transport{publisher: pubsub, subscriber: pubsub}, nil
	}

	ncfg := natsConfig(cfg.Events.NATS)

	if ncfg.Embedded {
		embedded, err := eventstream.NewEmbeddedServer(ncfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		ncfg.URL = embedded.ClientURL()
		tree.AddEventService(supervisor.NewNATSServerService(embedded, logger))
	}

	nc, err := nats.Connect(ncfg.URL,
		nats.MaxReconnects(ncfg.MaxReconnects),
		nats.ReconnectWait(ncfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	streams, err := eventstream.NewStreamManager(nc, ncfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	if _, err := streams.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("provision stream: %w", err)
	}

	pub, err := eventstream.NewNATSPublisher(ncfg, wmLogger)
	if err != nil {
		nc.Close()
		return nil, err
	}
	sub, err := eventstream.NewNATSSubscriber(ncfg, wmLogger)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &transport{publisher: pub, subscriber: sub, conn: nc}, nil
}

func natsConfig(cfg config.NATSConfig) eventstream.NATSConfig {
	return eventstream.NATSConfig{
		URL:              cfg.URL,
		Embedded:         cfg.Embedded,
		Host:             cfg.Host,
		Port:             cfg.Port,
		StoreDir:         cfg.StoreDir,
		MaxMemory:        cfg.MaxMemory,
		MaxStore:         cfg.MaxStore,
		StreamName:       cfg.StreamName,
		StreamMaxAge:     cfg.StreamMaxAge,
		DuplicateWindow:  cfg.DuplicateWindow,
		DurableName:      cfg.DurableName,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		MaxDeliver:       cfg.MaxDeliver,
		MaxAckPending:    cfg.MaxAckPending,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		MaxReconnects:    cfg.MaxReconnects,
		ReconnectWait:    cfg.ReconnectWait,
		CloseTimeout:     cfg.CloseTimeout,
	}
}
