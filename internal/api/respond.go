// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mpavic/crescendo/internal/logging"
	"github.com/mpavic/crescendo/internal/metrics"
	"github.com/mpavic/crescendo/internal/models"
	"github.com/mpavic/crescendo/internal/store"
)

// UserHeader carries the caller identity, set by the upstream gateway.
// This service trusts it as a deployment boundary; it performs no
// authentication of its own.
const UserHeader = "X-Crescendo-User"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

// requireUser extracts the caller identity or fails the request. The
// username becomes a store key segment, so the ':' delimiter is rejected
// here the same way registration rejects it.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.Header.Get(UserHeader)
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing "+UserHeader+" header")
		return "", false
	}
	if !models.ValidKeySegment(username) {
		writeError(w, http.StatusBadRequest, "username must not contain ':'")
		return "", false
	}
	return username, true
}

// decodeJSON reads and decodes a request body, rejecting unknown garbage
// with a 400 at the caller.
func decodeJSON(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(out)
}

// instrument records request counts and latency per chi route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx := logging.ContextWithCorrelationID(r.Context(), logging.NewCorrelationID())
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
