// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScoringEventType classifies the interaction that produced a scoring event.
type ScoringEventType string

// Scoring event types with their fixed weights applied by the accumulator.
const (
	ScoringActivity  ScoringEventType = "activity"
	ScoringRating    ScoringEventType = "rating"
	ScoringArtistSub ScoringEventType = "artsub"
	ScoringGenreSub  ScoringEventType = "gensub"
)

// Valid reports whether t is a known scoring event type.
func (t ScoringEventType) Valid() bool {
	switch t {
	case ScoringActivity, ScoringRating, ScoringArtistSub, ScoringGenreSub:
		return true
	}
	return false
}

// ScoringEvent instructs the accumulator to adjust a user's genre affinities.
// IncomingScore is the raw magnitude before weighting; unsubscribes carry a
// negative IncomingScore so the same path reverses a subscription.
type ScoringEvent struct {
	EventID       string           `json:"eventId"`
	Username      string           `json:"username"`
	Type          ScoringEventType `json:"type"`
	IncomingScore float64          `json:"incomingScore"`
	Genres        []string         `json:"genres"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

// NewScoringEvent builds a scoring event with a fresh event ID.
func NewScoringEvent(username string, t ScoringEventType, incomingScore float64, genres []string) *ScoringEvent {
	return &ScoringEvent{
		EventID:       uuid.NewString(),
		Username:      username,
		Type:          t,
		IncomingScore: incomingScore,
		Genres:        genres,
		OccurredAt:    time.Now().UTC(),
	}
}

// Validate checks the event is well formed.
func (e *ScoringEvent) Validate() error {
	if e.Username == "" {
		return errors.New("username is required")
	}
	if !ValidKeySegment(e.Username) {
		return fmt.Errorf("username %w", ErrReservedDelimiter)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown scoring event type %q", e.Type)
	}
	if len(e.Genres) == 0 {
		return errors.New("at least one genre is required")
	}
	for _, g := range e.Genres {
		if !ValidKeySegment(g) {
			return fmt.Errorf("genre %q %w", g, ErrReservedDelimiter)
		}
	}
	return nil
}

// FeedRebuildSignal asks the full rebuilder to recompute one user's feed.
type FeedRebuildSignal struct {
	EventID    string    `json:"eventId"`
	Username   string    `json:"username"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewFeedRebuildSignal builds a rebuild signal with a fresh event ID.
func NewFeedRebuildSignal(username, reason string) *FeedRebuildSignal {
	return &FeedRebuildSignal{
		EventID:    uuid.NewString(),
		Username:   username,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks the signal is well formed.
func (e *FeedRebuildSignal) Validate() error {
	if e.Username == "" {
		return errors.New("username is required")
	}
	if !ValidKeySegment(e.Username) {
		return fmt.Errorf("username %w", ErrReservedDelimiter)
	}
	return nil
}

// ContentPublishedEvent announces newly created content to the incremental
// feed updater, which pushes it into every user's feed it qualifies for.
type ContentPublishedEvent struct {
	EventID    string      `json:"eventId"`
	Content    CatalogItem `json:"content"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// NewContentPublishedEvent builds a publish announcement for item.
func NewContentPublishedEvent(item *CatalogItem) *ContentPublishedEvent {
	return &ContentPublishedEvent{
		EventID:    uuid.NewString(),
		Content:    *item,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks the event is well formed.
func (e *ContentPublishedEvent) Validate() error {
	return e.Content.Validate()
}

// ContentIndexDiffEvent carries a content mutation to the index differ.
// OldContent is nil on create, NewContent is nil on delete; both set means
// update. The differ treats OldContent as a fallback baseline only, its own
// snapshot store is authoritative.
type ContentIndexDiffEvent struct {
	EventID     string       `json:"eventId"`
	ContentID   string       `json:"contentId"`
	ContentType ContentType  `json:"contentType"`
	OldContent  *CatalogItem `json:"oldContent,omitempty"`
	NewContent  *CatalogItem `json:"newContent,omitempty"`
	OccurredAt  time.Time    `json:"occurredAt"`
}

// NewContentIndexDiffEvent builds a diff event for the given transition.
func NewContentIndexDiffEvent(contentType ContentType, contentID string, oldContent, newContent *CatalogItem) *ContentIndexDiffEvent {
	return &ContentIndexDiffEvent{
		EventID:     uuid.NewString(),
		ContentID:   contentID,
		ContentType: contentType,
		OldContent:  oldContent,
		NewContent:  newContent,
		OccurredAt:  time.Now().UTC(),
	}
}

// ContentKey returns the composite key of the content this diff concerns.
func (e *ContentIndexDiffEvent) ContentKey() string {
	return ContentKey(e.ContentType, e.ContentID)
}

// Validate checks the event is well formed.
func (e *ContentIndexDiffEvent) Validate() error {
	if e.ContentID == "" {
		return errors.New("content id is required")
	}
	if !ValidKeySegment(e.ContentID) {
		return fmt.Errorf("content id %w", ErrReservedDelimiter)
	}
	if !e.ContentType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidContentType, e.ContentType)
	}
	if e.OldContent == nil && e.NewContent == nil {
		return errors.New("diff event requires old or new content")
	}
	if e.NewContent != nil {
		if err := e.NewContent.Validate(); err != nil {
			return err
		}
	}
	return nil
}
