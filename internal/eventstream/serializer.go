// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package eventstream

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mpavic/crescendo/internal/models"
)

// Serialization is plain JSON with validation on both sides of the wire:
// a payload that fails to decode or validate is a permanent error at the
// consumer, never a retry.

// MarshalScoringEvent encodes a validated scoring event.
func MarshalScoringEvent(e *models.ScoringEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate scoring event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring event: %w", err)
	}
	return data, nil
}

// UnmarshalScoringEvent decodes and validates a scoring event payload.
func UnmarshalScoringEvent(data []byte) (*models.ScoringEvent, error) {
	var e models.ScoringEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal scoring event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate scoring event: %w", err)
	}
	return &e, nil
}

// MarshalFeedRebuildSignal encodes a validated rebuild signal.
func MarshalFeedRebuildSignal(e *models.FeedRebuildSignal) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate rebuild signal: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal rebuild signal: %w", err)
	}
	return data, nil
}

// UnmarshalFeedRebuildSignal decodes and validates a rebuild signal payload.
func UnmarshalFeedRebuildSignal(data []byte) (*models.FeedRebuildSignal, error) {
	var e models.FeedRebuildSignal
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal rebuild signal: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate rebuild signal: %w", err)
	}
	return &e, nil
}

// MarshalContentPublishedEvent encodes a validated publish announcement.
func MarshalContentPublishedEvent(e *models.ContentPublishedEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate content published event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal content published event: %w", err)
	}
	return data, nil
}

// UnmarshalContentPublishedEvent decodes and validates a publish payload.
func UnmarshalContentPublishedEvent(data []byte) (*models.ContentPublishedEvent, error) {
	var e models.ContentPublishedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal content published event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate content published event: %w", err)
	}
	return &e, nil
}

// MarshalContentIndexDiffEvent encodes a validated index diff event.
func MarshalContentIndexDiffEvent(e *models.ContentIndexDiffEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate index diff event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal index diff event: %w", err)
	}
	return data, nil
}

// UnmarshalContentIndexDiffEvent decodes and validates a diff payload.
func UnmarshalContentIndexDiffEvent(data []byte) (*models.ContentIndexDiffEvent, error) {
	var e models.ContentIndexDiffEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal index diff event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate index diff event: %w", err)
	}
	return &e, nil
}
