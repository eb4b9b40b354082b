// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/mpavic/crescendo/internal/eventstream"
)

// HTTPService runs an http.Server as a suture service. Serve blocks until
// the context is canceled, then shuts down gracefully within the timeout.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPService wraps server for supervision.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPService {
	return &HTTPService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With().Str("service", "http").Logger(),
	}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return suture.ErrDoNotRestart
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("http shutdown incomplete")
		}
		<-errCh
		return suture.ErrDoNotRestart
	}
}

func (s *HTTPService) String() string { return "http-server" }

// RouterService runs the Watermill consumer router under supervision. A
// router crash is restarted by the tree; handlers are registered once on
// the router before the tree starts.
type RouterService struct {
	router *eventstream.Router
	logger zerolog.Logger
}

// NewRouterService wraps router for supervision.
func NewRouterService(router *eventstream.Router, logger zerolog.Logger) *RouterService {
	return &RouterService{
		router: router,
		logger: logger.With().Str("service", "event-router").Logger(),
	}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("event router starting")
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return suture.ErrDoNotRestart
	}
	return err
}

func (s *RouterService) String() string { return "event-router" }

// NATSServerService holds the embedded JetStream broker open for the
// lifetime of the tree. The broker is started before the tree so clients
// can connect during wiring; this service only ties its shutdown to the
// supervisor's lifecycle.
type NATSServerService struct {
	server *eventstream.EmbeddedServer
	logger zerolog.Logger
}

// NewNATSServerService wraps an already started embedded server.
func NewNATSServerService(server *eventstream.EmbeddedServer, logger zerolog.Logger) *NATSServerService {
	return &NATSServerService{
		server: server,
		logger: logger.With().Str("service", "nats-server").Logger(),
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return errors.New("embedded nats server is not running")
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("nats shutdown incomplete")
	}
	return suture.ErrDoNotRestart
}

func (s *NATSServerService) String() string { return "nats-server" }
