// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package metrics defines the Prometheus instruments for the event pipeline,
// the materialized stores, and the HTTP surface. Instruments are registered
// on the default registry via promauto and exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsConsumed counts messages pulled from the stream per handler.
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_events_consumed_total",
			Help: "Messages consumed from the event stream, by handler.",
		},
		[]string{"handler"},
	)

	// EventsProcessed counts messages handled successfully per handler.
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_events_processed_total",
			Help: "Messages processed successfully, by handler.",
		},
		[]string{"handler"},
	)

	// EventsFailed counts handler failures by handler and kind
	// (retryable or permanent).
	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_events_failed_total",
			Help: "Messages that failed processing, by handler and error kind.",
		},
		[]string{"handler", "kind"},
	)

	// EventsPublished counts messages published per topic.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_events_published_total",
			Help: "Messages published to the event stream, by topic.",
		},
		[]string{"topic"},
	)

	// PublishFailures counts publish errors per topic, including circuit
	// breaker rejections.
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_events_publish_failures_total",
			Help: "Failed publishes, by topic.",
		},
		[]string{"topic"},
	)

	// StoreConflictRetries counts Badger transaction conflicts that were
	// retried by the optimistic concurrency loop.
	StoreConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crescendo_store_conflict_retries_total",
			Help: "Badger transaction conflicts retried.",
		},
	)

	// FeedInsertions counts incremental feed insertions by outcome
	// (appended, evicted, discarded).
	FeedInsertions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_feed_insertions_total",
			Help: "Incremental feed insertion outcomes.",
		},
		[]string{"outcome"},
	)

	// FeedRebuilds counts full feed rebuilds by result.
	FeedRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_feed_rebuilds_total",
			Help: "Full feed rebuilds, by result.",
		},
		[]string{"result"},
	)

	// FeedRebuildDuration observes how long a full rebuild takes.
	FeedRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crescendo_feed_rebuild_duration_seconds",
			Help:    "Duration of full feed rebuilds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	// IndexMutations counts inverted index adds and removes per index.
	IndexMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_index_mutations_total",
			Help: "Inverted index mutations, by index and operation.",
		},
		[]string{"index", "op"},
	)

	// HTTPRequests counts API requests by route, method, and status class.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_http_requests_total",
			Help: "HTTP requests, by route, method, and status.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crescendo_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordStoreConflictRetry increments the conflict retry counter.
func RecordStoreConflictRetry() {
	StoreConflictRetries.Inc()
}

// RecordEventConsumed marks one message pulled by the named handler.
func RecordEventConsumed(handler string) {
	EventsConsumed.WithLabelValues(handler).Inc()
}

// RecordEventProcessed marks one message handled successfully.
func RecordEventProcessed(handler string) {
	EventsProcessed.WithLabelValues(handler).Inc()
}

// RecordEventFailed marks one handler failure of the given kind.
func RecordEventFailed(handler, kind string) {
	EventsFailed.WithLabelValues(handler, kind).Inc()
}

// RecordPublish marks one successful publish to topic.
func RecordPublish(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordPublishFailure marks one failed publish to topic.
func RecordPublishFailure(topic string) {
	PublishFailures.WithLabelValues(topic).Inc()
}

// RecordFeedInsertion marks one incremental insertion outcome.
func RecordFeedInsertion(outcome string) {
	FeedInsertions.WithLabelValues(outcome).Inc()
}

// RecordFeedRebuild marks a completed rebuild and observes its duration.
func RecordFeedRebuild(result string, elapsed time.Duration) {
	FeedRebuilds.WithLabelValues(result).Inc()
	FeedRebuildDuration.Observe(elapsed.Seconds())
}

// RecordIndexMutation marks one add or remove on the named index.
func RecordIndexMutation(index, op string) {
	IndexMutations.WithLabelValues(index, op).Inc()
}
