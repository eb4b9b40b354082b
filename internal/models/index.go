// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

// GenreIndexEntry is one row of the genre inverted index: a denormalized
// catalog item filed under a genre partition.
type GenreIndexEntry struct {
	GenreName   string      `json:"genreName"`
	ContentKey  string      `json:"contentKey"`
	ContentID   string      `json:"contentId"`
	ContentType ContentType `json:"contentType"`
	Content     CatalogItem `json:"content"`
}

// ArtistIndexEntry is one row of the artist inverted index.
type ArtistIndexEntry struct {
	ArtistID    string      `json:"artistId"`
	ContentKey  string      `json:"contentKey"`
	ContentID   string      `json:"contentId"`
	ContentType ContentType `json:"contentType"`
	Content     CatalogItem `json:"content"`
}

// NewGenreIndexEntry files item under the given genre.
func NewGenreIndexEntry(genre string, item *CatalogItem) *GenreIndexEntry {
	return &GenreIndexEntry{
		GenreName:   genre,
		ContentKey:  item.ContentKey(),
		ContentID:   item.ID,
		ContentType: item.Type,
		Content:     *item,
	}
}

// NewArtistIndexEntry files item under the given artist ID.
func NewArtistIndexEntry(artistID string, item *CatalogItem) *ArtistIndexEntry {
	return &ArtistIndexEntry{
		ArtistID:    artistID,
		ContentKey:  item.ContentKey(),
		ContentID:   item.ID,
		ContentType: item.Type,
		Content:     *item,
	}
}
