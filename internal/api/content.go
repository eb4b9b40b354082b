// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mpavic/crescendo/internal/models"
)

type contentRequest struct {
	Type      string                `json:"type" validate:"required,oneof=artist album song"`
	Title     string                `json:"title" validate:"required,max=512"`
	Genres    []string              `json:"genres" validate:"required,min=1,dive,required"`
	ArtistIDs []string              `json:"artistIds" validate:"omitempty,dive,required"`
	Artist    *models.ArtistDetails `json:"artist"`
	Album     *models.AlbumDetails  `json:"album"`
	Song      *models.SongDetails   `json:"song"`
}

func (req *contentRequest) toItem(id string, now time.Time) *models.CatalogItem {
	return &models.CatalogItem{
		ID:        id,
		Type:      models.ContentType(req.Type),
		Title:     req.Title,
		Genres:    req.Genres,
		ArtistIDs: req.ArtistIDs,
		Artist:    req.Artist,
		Album:     req.Album,
		Song:      req.Song,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// publishAttempts bounds the synchronous republish attempts after a catalog
// write. A drop past the last attempt leaves the materialized views stale
// until the item's next mutation, so transient transport failures get a few
// chances before the handler gives up.
const publishAttempts = 3

func (h *Handler) publishEvent(what, contentKey string, publish func() error) {
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = publish(); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}
	h.logger.Error().Err(err).Str("event", what).Str("content_key", contentKey).
		Msg("event publish dropped; views stale until next mutation")
}

// CreateContent persists a new catalog item and kicks off the asynchronous
// fan-out: a publish announcement for the feed updater and an index diff
// for the differ.
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := req.toItem(uuid.NewString(), time.Now().UTC())
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if err := h.stores.Catalog.Put(ctx, item); err != nil {
		h.logger.Error().Err(err).Str("content_key", item.ContentKey()).Msg("catalog write failed")
		writeStoreError(w, err)
		return
	}

	h.publishEvent("content-published", item.ContentKey(), func() error {
		return h.events.PublishContentPublished(ctx, models.NewContentPublishedEvent(item))
	})
	h.publishEvent("index-diff", item.ContentKey(), func() error {
		return h.events.PublishIndexDiff(ctx, models.NewContentIndexDiffEvent(item.Type, item.ID, nil, item))
	})

	writeJSON(w, http.StatusCreated, item)
}

// pathContent resolves the {type}/{id} path pair.
func pathContent(w http.ResponseWriter, r *http.Request) (models.ContentType, string, bool) {
	contentType := models.ContentType(chi.URLParam(r, "type"))
	if !contentType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown content type")
		return "", "", false
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing content id")
		return "", "", false
	}
	return contentType, id, true
}

// GetContent returns one catalog item.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	contentType, id, ok := pathContent(w, r)
	if !ok {
		return
	}
	item, err := h.stores.Catalog.Get(r.Context(), contentType, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// UpdateContent replaces a catalog item and publishes the index diff.
// The diff carries the previous state as a fallback baseline; the differ's
// own snapshot remains authoritative.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	contentType, id, ok := pathContent(w, r)
	if !ok {
		return
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if models.ContentType(req.Type) != contentType {
		writeError(w, http.StatusBadRequest, "content type cannot change")
		return
	}

	ctx := r.Context()
	previous, err := h.stores.Catalog.Get(ctx, contentType, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	item := req.toItem(id, time.Now().UTC())
	item.CreatedAt = previous.CreatedAt
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.stores.Catalog.Put(ctx, item); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publishEvent("index-diff", item.ContentKey(), func() error {
		return h.events.PublishIndexDiff(ctx, models.NewContentIndexDiffEvent(contentType, id, previous, item))
	})

	writeJSON(w, http.StatusOK, item)
}

// DeleteContent removes a catalog item and publishes the deletion diff.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	contentType, id, ok := pathContent(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	previous, err := h.stores.Catalog.Get(ctx, contentType, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.stores.Catalog.Delete(ctx, contentType, id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publishEvent("index-diff", previous.ContentKey(), func() error {
		return h.events.PublishIndexDiff(ctx, models.NewContentIndexDiffEvent(contentType, id, previous, nil))
	})

	w.WriteHeader(http.StatusNoContent)
}

// groupedContent is the shape of filter and feed responses: items grouped
// by content type.
type groupedContent struct {
	Artists []models.CatalogItem `json:"artists"`
	Albums  []models.CatalogItem `json:"albums"`
	Songs   []models.CatalogItem `json:"songs"`
}

func (g *groupedContent) add(item models.CatalogItem) {
	switch item.Type {
	case models.ContentTypeArtist:
		g.Artists = append(g.Artists, item)
	case models.ContentTypeAlbum:
		g.Albums = append(g.Albums, item)
	case models.ContentTypeSong:
		g.Songs = append(g.Songs, item)
	}
}

// FilterByGenre serves the genre partition of the inverted index.
func (h *Handler) FilterByGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")
	rows, err := h.stores.GenreIndex.Query(r.Context(), genre)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	grouped := groupedContent{
		Artists: []models.CatalogItem{},
		Albums:  []models.CatalogItem{},
		Songs:   []models.CatalogItem{},
	}
	for _, row := range rows {
		grouped.add(row.Content)
	}
	writeJSON(w, http.StatusOK, grouped)
}

// FilterByArtist serves the artist partition of the inverted index.
func (h *Handler) FilterByArtist(w http.ResponseWriter, r *http.Request) {
	artistID := chi.URLParam(r, "artistID")
	rows, err := h.stores.ArtistIndex.Query(r.Context(), artistID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	grouped := groupedContent{
		Artists: []models.CatalogItem{},
		Albums:  []models.CatalogItem{},
		Songs:   []models.CatalogItem{},
	}
	for _, row := range rows {
		grouped.add(row.Content)
	}
	writeJSON(w, http.StatusOK, grouped)
}
