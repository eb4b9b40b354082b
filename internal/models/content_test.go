// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package models

import "testing"

func TestCatalogItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    CatalogItem
		wantErr bool
	}{
		{
			name: "valid artist",
			item: CatalogItem{
				ID:     "a1",
				Type:   ContentTypeArtist,
				Title:  "Miles Davis",
				Genres: []string{"Jazz"},
				Artist: &ArtistDetails{Bio: "trumpeter"},
			},
		},
		{
			name: "valid song",
			item: CatalogItem{
				ID:        "s1",
				Type:      ContentTypeSong,
				Title:     "So What",
				Genres:    []string{"Jazz"},
				ArtistIDs: []string{"a1"},
				Song:      &SongDetails{AlbumID: "al1", TrackNo: 1},
			},
		},
		{
			name:    "missing id",
			item:    CatalogItem{Type: ContentTypeAlbum, Title: "x", ArtistIDs: []string{"a1"}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			item:    CatalogItem{ID: "x", Type: "playlist", Title: "x"},
			wantErr: true,
		},
		{
			name:    "missing title",
			item:    CatalogItem{ID: "x", Type: ContentTypeArtist},
			wantErr: true,
		},
		{
			name: "artist with song payload",
			item: CatalogItem{
				ID:    "a1",
				Type:  ContentTypeArtist,
				Title: "x",
				Song:  &SongDetails{},
			},
			wantErr: true,
		},
		{
			name:    "album without artists",
			item:    CatalogItem{ID: "al1", Type: ContentTypeAlbum, Title: "x"},
			wantErr: true,
		},
		{
			name: "delimiter in id",
			item: CatalogItem{
				ID: "a:1", Type: ContentTypeArtist, Title: "x",
				Genres: []string{"Jazz"},
			},
			wantErr: true,
		},
		{
			name: "delimiter in genre",
			item: CatalogItem{
				ID: "a1", Type: ContentTypeArtist, Title: "x",
				Genres: []string{"Ja:zz"},
			},
			wantErr: true,
		},
		{
			name: "delimiter in artist id",
			item: CatalogItem{
				ID: "s1", Type: ContentTypeSong, Title: "x",
				Genres: []string{"Jazz"}, ArtistIDs: []string{"a:1"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidKeySegment(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"alice", true},
		{"Jazz", true},
		{"", false},
		{"alice:song", false},
		{":", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidKeySegment(tt.input); got != tt.want {
				t.Errorf("ValidKeySegment(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestContentKey(t *testing.T) {
	if got := ContentKey(ContentTypeSong, "123"); got != "song-123" {
		t.Errorf("ContentKey() = %q, want %q", got, "song-123")
	}

	item := CatalogItem{ID: "al9", Type: ContentTypeAlbum}
	if got := item.ContentKey(); got != "album-al9" {
		t.Errorf("CatalogItem.ContentKey() = %q, want %q", got, "album-al9")
	}
}

func TestArtistIDSetIncludesSelf(t *testing.T) {
	artist := CatalogItem{ID: "a1", Type: ContentTypeArtist, Title: "x"}
	set := artist.ArtistIDSet()
	if _, ok := set["a1"]; !ok {
		t.Error("artist item should index under its own id")
	}

	song := CatalogItem{ID: "s1", Type: ContentTypeSong, ArtistIDs: []string{"a1", "a2"}}
	set = song.ArtistIDSet()
	if len(set) != 2 {
		t.Errorf("song artist set size = %d, want 2", len(set))
	}
	if _, ok := set["s1"]; ok {
		t.Error("song must not index under its own id")
	}
}
