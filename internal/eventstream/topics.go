// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package eventstream wires the Watermill pipeline: topics, serialization,
// the middleware-laden router, the resilient publisher, and the transport
// (in-process gochannel by default, NATS JetStream for durable deployments).
package eventstream

// Topics use NATS-compatible subject hierarchies so the same names work on
// both transports.
const (
	// TopicScoring carries ScoringEvents into the accumulator.
	TopicScoring = "scoring.events"

	// TopicFeedRebuild carries FeedRebuildSignals into the full rebuilder.
	TopicFeedRebuild = "feed.rebuild"

	// TopicContentPublished carries ContentPublishedEvents into the
	// incremental feed updater.
	TopicContentPublished = "content.published"

	// TopicIndexDiff carries ContentIndexDiffEvents into the differ.
	TopicIndexDiff = "content.diff"

	// TopicPoison receives messages that exhausted their retries or failed
	// permanently. Nothing consumes it in-process; it is an operator surface.
	TopicPoison = "dlq.events"
)

// StreamSubjects covers every topic above for JetStream provisioning.
var StreamSubjects = []string{"scoring.>", "feed.>", "content.>", "dlq.>"}
