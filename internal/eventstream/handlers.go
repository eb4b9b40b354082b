// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package eventstream

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mpavic/crescendo/internal/feed"
	"github.com/mpavic/crescendo/internal/index"
	"github.com/mpavic/crescendo/internal/logging"
	"github.com/mpavic/crescendo/internal/metrics"
	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/scoring"
)

// Handler names, used for router registration and metric labels.
const (
	HandlerScoring     = "scoring-accumulator"
	HandlerFeedRebuild = "feed-rebuilder"
	HandlerFeedUpdate  = "feed-updater"
	HandlerIndexDiff   = "index-differ"
)

// Processors bundles the four pipeline consumers.
type Processors struct {
	Accumulator *scoring.Accumulator
	Updater     *feed.Updater
	Rebuilder   *feed.Rebuilder
	Differ      *index.Differ
}

// RegisterHandlers binds every processor to its topic on the router.
// Decode or validation failures are permanent (straight to the poison
// topic); processor failures are retryable and go through backoff first.
func RegisterHandlers(r *Router, subscriber message.Subscriber, p Processors) {
	r.AddConsumerHandler(HandlerScoring, TopicScoring, subscriber,
		consume(HandlerScoring, UnmarshalScoringEvent, p.Accumulator.Process))

	r.AddConsumerHandler(HandlerFeedRebuild, TopicFeedRebuild, subscriber,
		consume(HandlerFeedRebuild, UnmarshalFeedRebuildSignal, func(ctx context.Context, s *models.FeedRebuildSignal) error {
			return p.Rebuilder.Rebuild(ctx, s.Username)
		}))

	r.AddConsumerHandler(HandlerFeedUpdate, TopicContentPublished, subscriber,
		consume(HandlerFeedUpdate, UnmarshalContentPublishedEvent, p.Updater.Apply))

	r.AddConsumerHandler(HandlerIndexDiff, TopicIndexDiff, subscriber,
		consume(HandlerIndexDiff, UnmarshalContentIndexDiffEvent, p.Differ.Apply))
}

// consume adapts a typed processor to a Watermill handler: decode and
// validate (permanent on failure), process (retryable unless the processor
// already classified the error), and record metrics either way.
func consume[E any](name string, decode func([]byte) (*E, error), process func(context.Context, *E) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		metrics.RecordEventConsumed(name)

		event, err := decode(msg.Payload)
		if err != nil {
			metrics.RecordEventFailed(name, "permanent")
			return Permanent(name+" decode", err)
		}

		ctx := logging.ContextWithCorrelationID(msg.Context(), msg.UUID)
		if err := process(ctx, event); err != nil {
			if IsPermanent(err) {
				metrics.RecordEventFailed(name, "permanent")
				return err
			}
			metrics.RecordEventFailed(name, "retryable")
			return Retryable(name, err)
		}

		metrics.RecordEventProcessed(name)
		return nil
	}
}
