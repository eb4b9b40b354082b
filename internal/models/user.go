// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

import "time"

// User is a directory entry. The directory exists so the incremental feed
// updater can enumerate all users; identity itself is managed upstream.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// SubscriptionType distinguishes artist from genre subscriptions.
type SubscriptionType string

// Subscription targets.
const (
	SubscriptionArtist SubscriptionType = "artist"
	SubscriptionGenre  SubscriptionType = "genre"
)

// Valid reports whether t is a known subscription type.
func (t SubscriptionType) Valid() bool {
	return t == SubscriptionArtist || t == SubscriptionGenre
}

// Subscription records a user's standing interest in an artist or a genre.
// TargetID is the artist ID or the genre name depending on Type.
type Subscription struct {
	Username     string           `json:"username"`
	Type         SubscriptionType `json:"type"`
	TargetID     string           `json:"targetId"`
	Genres       []string         `json:"genres"`
	SubscribedAt time.Time        `json:"subscribedAt"`
}

// Rating is a user's 1 to 5 verdict on a song or album.
// Re-rating the same content overwrites the previous row.
type Rating struct {
	ContentID   string      `json:"contentId"`
	Username    string      `json:"username"`
	ContentType ContentType `json:"contentType"`
	Value       int         `json:"value"`
	Genres      []string    `json:"genres"`
	RatedAt     time.Time   `json:"ratedAt"`
}
