// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/authcore/authcore/pkg/errutil"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer, level string) *slog.Logger {
	t.Helper()
	logger, err := New(Options{Service: "authcore", Version: "1.0.0", Format: FormatJSON, Level: level, Writer: buf})
	require.NoError(t, err)
	return logger
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse JSON: %s", buf.String())
	return entry
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(t, &buf, "").Info("test message")

	entry := decode(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "authcore", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Service: "authcore", Format: "TEXT", Writer: &buf})
	require.NoError(t, err)

	logger.Info("test message")
	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "service=authcore")
}

func TestNew_RejectsUnknownFormatAndLevel(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	errutil.AssertErrorCode(t, err, "LOG_FORMAT_INVALID")

	_, err = New(Options{Level: "chatty"})
	errutil.AssertErrorCode(t, err, "LOG_LEVEL_INVALID")
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf, "warn")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf, "")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(t, &buf, "").Info("no trace message")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestHandler_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf, "")

	logger.With("refresh_token", "eyJhbGciOi.refresh").
		WithGroup("request").
		Info("login",
			"password", "hunter2",
			"Access_Token", "eyJhbGciOi.access",
			"email", "a@example.com",
		)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "eyJhbGciOi")
	assert.Contains(t, out, "a@example.com")

	entry := decode(t, &buf)
	assert.Equal(t, Redacted, entry["refresh_token"])
	request, ok := entry["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redacted, request["password"])
	assert.Equal(t, Redacted, request["Access_Token"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
