// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

// Package api exposes the HTTP surface: catalog CRUD (which feeds the event
// pipeline), feed and filter queries against the materialized views, user
// registration, subscriptions, ratings, and playback activity.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mpavic/crescendo/internal/config"
	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

// EventSink is the slice of the event publisher the API needs. Mutating
// endpoints persist synchronously, then hand the asynchronous work
// (scoring, fan-out, index maintenance) to the stream.
type EventSink interface {
	PublishScoring(ctx context.Context, event *models.ScoringEvent) error
	PublishContentPublished(ctx context.Context, event *models.ContentPublishedEvent) error
	PublishIndexDiff(ctx context.Context, event *models.ContentIndexDiffEvent) error
}

// Stores bundles the repositories the handlers read and write.
type Stores struct {
	Catalog       *store.CatalogStore
	Feeds         *store.FeedStore
	GenreIndex    *store.GenreIndexStore
	ArtistIndex   *store.ArtistIndexStore
	Subscriptions *store.SubscriptionStore
	Ratings       *store.RatingStore
	Directory     *store.UserDirectory
}

// Handler carries the dependencies of every endpoint.
type Handler struct {
	stores   Stores
	events   EventSink
	validate *validator.Validate
	cfg      config.APIConfig
	logger   zerolog.Logger
}

// NewHandler builds the endpoint set.
func NewHandler(stores Stores, events EventSink, cfg config.APIConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		stores:   stores,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Router assembles the chi router with the global middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", UserHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if h.cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(h.cfg.RateLimitReqs, h.cfg.RateLimitWindow))
		}
		r.Use(instrument)

		r.Route("/content", func(r chi.Router) {
			r.Post("/", h.CreateContent)
			r.Get("/genre/{genre}", h.FilterByGenre)
			r.Get("/artist/{artistID}", h.FilterByArtist)
			r.Get("/{type}/{id}", h.GetContent)
			r.Put("/{type}/{id}", h.UpdateContent)
			r.Delete("/{type}/{id}", h.DeleteContent)
		})

		r.Get("/feed", h.GetFeed)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.RegisterUser)
			r.Get("/", h.ListUsers)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", h.Subscribe)
			r.Get("/", h.ListSubscriptions)
			r.Delete("/{targetID}", h.Unsubscribe)
		})

		r.Post("/ratings", h.RateContent)
		r.Post("/activity", h.TrackActivity)
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
