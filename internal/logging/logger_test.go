// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package logging

import (
	"bytes"
	"context"
	"errors"
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

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
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

	if !ValidLevel("Debug") {
		t.Error("expected Debug to be valid")
	}
	if ValidLevel("loud") {
		t.Error("expected loud to be invalid")
	}
}

// The tests below swap the global logger and therefore do not run in parallel.

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	Info().Str("lot", "item_1").Msg("lot created")

	out := buf.String()
	if !strings.Contains(out, `"message":"lot created"`) {
		t.Errorf("expected message field, got: %s", out)
	}
	if !strings.Contains(out, `"lot":"item_1"`) {
		t.Errorf("expected lot field, got: %s", out)
	}
}

func TestCtxAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevelString("info")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUsername(ctx, "alice")
	Ctx(ctx).Info().Msg("bid placed")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("expected request_id, got: %s", out)
	}
	if !strings.Contains(out, `"user":"alice"`) {
		t.Errorf("expected user, got: %s", out)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevelString("info")

	l := Component("settlement")
	l.Info().Msg("tick")

	if !strings.Contains(buf.String(), `"component":"settlement"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevelString("debug")
	defer SetLevelString("info")

	logger := NewSlogLogger().With("service", "hub").WithGroup("ws")
	logger.Warn("client dropped", "clients", 3, "err", errors.New("closed"), slog.Group("peer", "addr", "1.2.3.4"))

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"hub"`,
		`"ws.clients":3`,
		`"ws.err":"closed"`,
		`"ws.peer.addr":"1.2.3.4"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}
