// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mpavic/crescendo/internal/feed"
	"github.com/mpavic/crescendo/internal/models"
)

type registerUserRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// RegisterUser adds a user to the directory so the feed updater fans
// content out to them.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidKeySegment(req.Username) {
		writeError(w, http.StatusBadRequest, "username must not contain ':'")
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		RegisteredAt: time.Now().UTC(),
	}
	if err := h.stores.Directory.Register(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type userPage struct {
	Users      []models.User `json:"users"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// ListUsers returns one directory page. The cursor query parameter resumes
// where the previous page stopped.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, next, err := h.stores.Directory.List(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, userPage{Users: users, NextCursor: next})
}

type feedResponse struct {
	Username string             `json:"username"`
	Artists  []models.FeedEntry `json:"artists"`
	Albums   []models.FeedEntry `json:"albums"`
	Songs    []models.FeedEntry `json:"songs"`
}

// GetFeed serves the caller's materialized feed, grouped by content type
// and sorted by descending score within each group.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.stores.Feeds.EntriesByUser(r.Context(), username)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := feedResponse{
		Username: username,
		Artists:  []models.FeedEntry{},
		Albums:   []models.FeedEntry{},
		Songs:    []models.FeedEntry{},
	}
	for _, entry := range entries {
		switch entry.ContentType {
		case models.ContentTypeArtist:
			resp.Artists = append(resp.Artists, entry)
		case models.ContentTypeAlbum:
			resp.Albums = append(resp.Albums, entry)
		case models.ContentTypeSong:
			resp.Songs = append(resp.Songs, entry)
		}
	}
	feed.SortEntries(resp.Artists)
	feed.SortEntries(resp.Albums)
	feed.SortEntries(resp.Songs)

	writeJSON(w, http.StatusOK, resp)
}

type subscribeRequest struct {
	Type     string `json:"type" validate:"required,oneof=artist genre"`
	TargetID string `json:"targetId" validate:"required"`
}

// Subscribe records a standing interest in an artist or a genre and feeds
// the heavily weighted subscription signal to the accumulator. Artist
// subscriptions resolve the artist's genres from the catalog; genre
// subscriptions score the genre itself.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidKeySegment(req.TargetID) {
		writeError(w, http.StatusBadRequest, "target id must not contain ':'")
		return
	}

	ctx := r.Context()
	subType := models.SubscriptionType(req.Type)

	var genres []string
	var scoringType models.ScoringEventType
	switch subType {
	case models.SubscriptionArtist:
		artist, err := h.stores.Catalog.Get(ctx, models.ContentTypeArtist, req.TargetID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		genres = artist.Genres
		scoringType = models.ScoringArtistSub
	case models.SubscriptionGenre:
		genres = []string{req.TargetID}
		scoringType = models.ScoringGenreSub
	}

	sub := &models.Subscription{
		Username:     username,
		Type:         subType,
		TargetID:     req.TargetID,
		Genres:       genres,
		SubscribedAt: time.Now().UTC(),
	}
	if err := h.stores.Subscriptions.Put(ctx, sub); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := h.events.PublishScoring(ctx, models.NewScoringEvent(username, scoringType, 1, genres)); err != nil {
		h.logger.Error().Err(err).Str("username", username).Str("target", req.TargetID).
			Msg("subscription scoring publish failed")
	}

	writeJSON(w, http.StatusCreated, sub)
}

// ListSubscriptions returns the caller's subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUser(w, r)
	if !ok {
		return
	}
	subs, err := h.stores.Subscriptions.ListByUser(r.Context(), username)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe removes a subscription and reverses its affinity contribution
// by publishing the same scoring event with a negative incoming score, using
// the genres captured when the subscription was created.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUser(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "targetID")

	ctx := r.Context()
	sub, err := h.stores.Subscriptions.Get(ctx, username, targetID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.stores.Subscriptions.Delete(ctx, username, targetID); err != nil {
		writeStoreError(w, err)
		return
	}

	scoringType := models.ScoringArtistSub
	if sub.Type == models.SubscriptionGenre {
		scoringType = models.ScoringGenreSub
	}
	if err := h.events.PublishScoring(ctx, models.NewScoringEvent(username, scoringType, -1, sub.Genres)); err != nil {
		h.logger.Error().Err(err).Str("username", username).Str("target", targetID).
			Msg("unsubscribe scoring publish failed")
	}

	w.WriteHeader(http.StatusNoContent)
}

type ratingRequest struct {
	ContentID   string `json:"contentId" validate:"required"`
	ContentType string `json:"contentType" validate:"required,oneof=album song"`
	Value       int    `json:"value" validate:"required,min=1,max=5"`
}

// RateContent stores a 1 to 5 rating and publishes the rating's value as
// the incoming score, so a five star rating lands as 50 affinity per genre
// after weighting.
func (h *Handler) RateContent(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	contentType := models.ContentType(req.ContentType)
	item, err := h.stores.Catalog.Get(ctx, contentType, req.ContentID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	rating := &models.Rating{
		ContentID:   req.ContentID,
		Username:    username,
		ContentType: contentType,
		Value:       req.Value,
		Genres:      item.Genres,
		RatedAt:     time.Now().UTC(),
	}
	if err := h.stores.Ratings.Put(ctx, rating); err != nil {
		writeStoreError(w, err)
		return
	}

	event := models.NewScoringEvent(username, models.ScoringRating, float64(req.Value), item.Genres)
	if err := h.events.PublishScoring(ctx, event); err != nil {
		h.logger.Error().Err(err).Str("username", username).Str("content_id", req.ContentID).
			Msg("rating scoring publish failed")
	}

	writeJSON(w, http.StatusCreated, rating)
}

type activityRequest struct {
	ContentID   string `json:"contentId" validate:"required"`
	ContentType string `json:"contentType" validate:"required,oneof=artist album song"`
}

// TrackActivity records a playback interaction as a unit scoring event
// against the content's genres.
func (h *Handler) TrackActivity(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	item, err := h.stores.Catalog.Get(ctx, models.ContentType(req.ContentType), req.ContentID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	event := models.NewScoringEvent(username, models.ScoringActivity, 1, item.Genres)
	if err := h.events.PublishScoring(ctx, event); err != nil {
		h.logger.Error().Err(err).Str("username", username).Str("content_id", req.ContentID).
			Msg("activity scoring publish failed")
	}

	writeJSON(w, http.StatusAccepted, event)
}
