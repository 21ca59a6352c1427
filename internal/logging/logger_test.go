// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("kind", "send").Msg("job finished")

	output := buf.String()
	if !strings.Contains(output, "job finished") {
		t.Errorf("expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, `"kind":"send"`) {
		t.Errorf("expected output to contain field, got: %s", output)
	}
}

func TestInit_ServiceAndContextFallback(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Service: "courier-test", Output: &buf})
	defer Init(DefaultConfig())

	// A context without a logger falls back to the global one.
	Ctx(context.Background()).Info().Msg("fallback")
	Debug().Msg("below level")

	output := buf.String()
	if !strings.Contains(output, `"service":"courier-test"`) {
		t.Errorf("missing service field: %s", output)
	}
	if !strings.Contains(output, "fallback") {
		t.Errorf("context fallback did not reach global logger: %s", output)
	}
	if strings.Contains(output, "below level") {
		t.Errorf("debug entry written at info level: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("warn") {
		t.Error("expected warn to be valid")
	}
	if ValidLevel("verbose") {
		t.Error("expected verbose to be invalid")
	}
}

func TestCtx_AddsCorrelationAndJob(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "abcd1234")
	ctx = ContextWithJobKind(ctx, "recover")

	Ctx(ctx).Info().Msg("repaired")

	output := buf.String()
	if !strings.Contains(output, `"correlation_id":"abcd1234"`) {
		t.Errorf("missing correlation id: %s", output)
	}
	if !strings.Contains(output, `"job":"recover"`) {
		t.Errorf("missing job kind: %s", output)
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()
	if len(id1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestSlogHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.WithGroup("supervisor").With("name", "pipeline").Warn("service restarted", "attempt", 2)

	output := buf.String()
	if !strings.Contains(output, `"supervisor.name":"pipeline"`) {
		t.Errorf("expected grouped key, got: %s", output)
	}
	if !strings.Contains(output, `"supervisor.attempt":2`) {
		t.Errorf("expected grouped record attr, got: %s", output)
	}
	if !strings.Contains(output, `"level":"warn"`) {
		t.Errorf("expected warn level, got: %s", output)
	}
}

func TestSlogHandler_NestedGroupAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.Info("backoff",
		slog.Group("service", slog.String("name", "wake-scheduler"), slog.Bool("restarting", true)),
		slog.String("", "dropped"),
	)

	output := buf.String()
	if !strings.Contains(output, `"service.name":"wake-scheduler"`) || !strings.Contains(output, `"service.restarting":true`) {
		t.Errorf("expected flattened group keys, got: %s", output)
	}
	if strings.Contains(output, "dropped") {
		t.Errorf("empty-key attribute was written: %s", output)
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := NewSlogHandlerWithLogger(NewTestLogger(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled on a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled on a warn logger")
	}
}
