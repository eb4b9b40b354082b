// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package models defines the domain types shared across the catalog,
// scoring, feed, and index packages.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrReservedDelimiter is returned when an identifier contains ':', which
// separates store key segments. An embedded ':' would let one partition's
// rows leak into another's prefix scans.
var ErrReservedDelimiter = errors.New("must not contain ':'")

// ValidKeySegment reports whether s can be embedded in a store key:
// non-empty and free of the ':' segment delimiter.
func ValidKeySegment(s string) bool {
	return s != "" && !strings.Contains(s, ":")
}

// ContentType identifies a catalog item variant.
type ContentType string

// Catalog content types.
const (
	ContentTypeArtist ContentType = "artist"
	ContentTypeAlbum  ContentType = "album"
	ContentTypeSong   ContentType = "song"
)

// ContentTypes lists all valid content types in catalog scan order.
var ContentTypes = []ContentType{ContentTypeArtist, ContentTypeAlbum, ContentTypeSong}

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeArtist, ContentTypeAlbum, ContentTypeSong:
		return true
	}
	return false
}

// ErrInvalidContentType is returned when a content type is not artist, album, or song.
var ErrInvalidContentType = errors.New("invalid content type")

// ContentKey builds the composite identity key "{contentType}-{contentId}"
// used by the inverted indexes and the snapshot store.
func ContentKey(t ContentType, id string) string {
	return string(t) + "-" + id
}

// ArtistDetails carries fields specific to artist items.
type ArtistDetails struct {
	Bio      string `json:"bio,omitempty"`
	ImageRef string `json:"imageRef,omitempty"`
}

// AlbumDetails carries fields specific to album items.
type AlbumDetails struct {
	CoverRef    string `json:"coverRef,omitempty"`
	ReleaseYear int    `json:"releaseYear,omitempty"`
}

// SongDetails carries fields specific to song items.
type SongDetails struct {
	AudioRef string `json:"audioRef,omitempty"`
	CoverRef string `json:"coverRef,omitempty"`
	AlbumID  string `json:"albumId,omitempty"`
	TrackNo  int    `json:"trackNo,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// CatalogItem is a tagged union over the three content variants.
// Type selects which detail payload is populated; shared fields
// (title, genres, artist references) live at the top level.
type CatalogItem struct {
	ID        string      `json:"id"`
	Type      ContentType `json:"type"`
	Title     string      `json:"title"`
	Genres    []string    `json:"genres,omitempty"`
	ArtistIDs []string    `json:"artistIds,omitempty"`

	Artist *ArtistDetails `json:"artist,omitempty"`
	Album  *AlbumDetails  `json:"album,omitempty"`
	Song   *SongDetails   `json:"song,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContentKey returns the item's composite identity key.
func (c *CatalogItem) ContentKey() string {
	return ContentKey(c.Type, c.ID)
}

// GenreSet returns the item's genres as a set.
func (c *CatalogItem) GenreSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Genres))
	for _, g := range c.Genres {
		set[g] = struct{}{}
	}
	return set
}

// ArtistIDSet returns the artist IDs this item should be indexed under.
// Artist items index themselves so a lookup by artist ID finds the artist row.
func (c *CatalogItem) ArtistIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ArtistIDs)+1)
	if c.Type == ContentTypeArtist {
		set[c.ID] = struct{}{}
	}
	for _, id := range c.ArtistIDs {
		set[id] = struct{}{}
	}
	return set
}

// Validate checks structural invariants of the item.
// Exactly one detail payload must match the declared type.
func (c *CatalogItem) Validate() error {
	if c.ID == "" {
		return errors.New("content id is required")
	}
	if !ValidKeySegment(c.ID) {
		return fmt.Errorf("content id %w", ErrReservedDelimiter)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidContentType, c.Type)
	}
	if c.Title == "" {
		return errors.New("title is required")
	}
	for _, g := range c.Genres {
		if !ValidKeySegment(g) {
			return fmt.Errorf("genre %q %w", g, ErrReservedDelimiter)
		}
	}
	for _, id := range c.ArtistIDs {
		if !ValidKeySegment(id) {
			return fmt.Errorf("artist id %q %w", id, ErrReservedDelimiter)
		}
	}

	switch c.Type {
	case ContentTypeArtist:
		if c.Album != nil || c.Song != nil {
			return fmt.Errorf("artist item carries %w", errMismatchedDetails)
		}
	case ContentTypeAlbum:
		if c.Artist != nil || c.Song != nil {
			return fmt.Errorf("album item carries %w", errMismatchedDetails)
		}
		if len(c.ArtistIDs) == 0 {
			return errors.New("album requires at least one artist id")
		}
	case ContentTypeSong:
		if c.Artist != nil || c.Album != nil {
			return fmt.Errorf("song item carries %w", errMismatchedDetails)
		}
		if len(c.ArtistIDs) == 0 {
			return errors.New("song requires at least one artist id")
		}
	}

	return nil
}

var errMismatchedDetails = errors.New("detail payload for a different content type")
