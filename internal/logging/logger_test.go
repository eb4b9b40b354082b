// Crescendo - Music Catalog and Personalized Feed Service
// Copyright 2026 M. Pavic (mpavic)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mpavic/crescendo

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"INFO", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: false, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) || !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestCtxCarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithContext(context.Background(), logger)
	ctx = ContextWithCorrelationID(ctx, "abcd1234")

	ctxLogger := Ctx(ctx)
	ctxLogger.Info().Msg("traced")

	if !strings.Contains(buf.String(), `"correlation_id":"abcd1234"`) {
		t.Errorf("correlation id missing from output: %s", buf.String())
	}
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	// A bare context must not panic and must return a usable logger.
	logger := Ctx(context.Background())
	logger.Debug().Msg("no-op")
}

func TestNewCorrelationIDIsShort(t *testing.T) {
	id := NewCorrelationID()
	if len(id) != 8 {
		t.Errorf("len(NewCorrelationID()) = %d, want 8", len(id))
	}
	if id == NewCorrelationID() {
		t.Error("two correlation IDs collided")
	}
}

func TestSlogHandlerForwardsToZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(logger))
	slogger.Warn("supervision event", "service", "event-router", "restarts", int64(2))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("level not forwarded: %s", out)
	}
	if !strings.Contains(out, `"service":"event-router"`) || !strings.Contains(out, `"restarts":2`) {
		t.Errorf("attributes not forwarded: %s", out)
	}
}

func TestSlogHandlerGroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(logger)).WithGroup("suture")
	slogger.Info("event", "name", "api-layer")

	if !strings.Contains(buf.String(), `"suture.name":"api-layer"`) {
		t.Errorf("group prefix missing: %s", buf.String())
	}
}

func TestSlogHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.WarnLevel)

	handler := NewSlogHandlerWithLogger(logger)
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug enabled on a warn-level backend")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled on a warn-level backend")
	}
}
