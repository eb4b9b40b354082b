// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package eventstream

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mpavic/crescendo/internal/metrics"
	"github.com/mpavic/crescendo/internal/models"
)

// EventPublisher is the single write path onto the event stream. Every
// publish goes through a circuit breaker so a dead transport fails fast
// instead of stacking up blocked API requests.
type EventPublisher struct {
	pub     message.Publisher
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger
}

// NewEventPublisher wraps the transport publisher with a circuit breaker.
func NewEventPublisher(pub message.Publisher, logger zerolog.Logger) *EventPublisher {
	settings := gobreaker.Settings{
		Name:        "event-publish",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publish circuit breaker state change")
		},
	}

	return &EventPublisher{
		pub:     pub,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger.With().Str("component", "event-publisher").Logger(),
	}
}

func (p *EventPublisher) publish(ctx context.Context, topic, eventID string, payload []byte) error {
	msg := message.NewMessage(eventID, payload)
	msg.SetContext(ctx)

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.pub.Publish(topic, msg)
	})
	if err != nil {
		metrics.RecordPublishFailure(topic)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.RecordPublish(topic)
	return nil
}

// PublishScoring enqueues a scoring event for the accumulator.
func (p *EventPublisher) PublishScoring(ctx context.Context, event *models.ScoringEvent) error {
	data, err := MarshalScoringEvent(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicScoring, event.EventID, data)
}

// PublishFeedRebuild enqueues a feed recomputation for one user.
func (p *EventPublisher) PublishFeedRebuild(ctx context.Context, signal *models.FeedRebuildSignal) error {
	data, err := MarshalFeedRebuildSignal(signal)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicFeedRebuild, signal.EventID, data)
}

// PublishContentPublished announces new content to the incremental updater.
func (p *EventPublisher) PublishContentPublished(ctx context.Context, event *models.ContentPublishedEvent) error {
	data, err := MarshalContentPublishedEvent(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicContentPublished, event.EventID, data)
}

// PublishIndexDiff hands a content mutation to the index differ.
func (p *EventPublisher) PublishIndexDiff(ctx context.Context, event *models.ContentIndexDiffEvent) error {
	data, err := MarshalContentIndexDiffEvent(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicIndexDiff, event.EventID, data)
}
