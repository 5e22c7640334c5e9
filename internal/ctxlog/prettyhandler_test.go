// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestPrettyHandler_Enabled(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		handler slog.Level
		want    bool
	}{
		{name: "debug on debug", level: slog.LevelDebug, handler: slog.LevelDebug, want: true},
		{name: "debug on info", level: slog.LevelDebug, handler: slog.LevelInfo, want: false},
		{name: "error on warn", level: slog.LevelError, handler: slog.LevelWarn, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPrettyHandler(&slog.HandlerOptions{Level: tt.handler})
			assert.Equal(t, tt.want, h.Enabled(context.Background(), tt.level))
		})
	}
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug}, WithDestinationWriter(&buf))
	ts := time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "job finished", 0)
	r.AddAttrs(slog.String("job", "Kicks"), slog.Int("files", 12))

	require.NoError(t, h.Handle(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, "[03:04:05.006] INFO: job finished")
	assert.Contains(t, out, `"job": "Kicks"`)
	assert.Contains(t, out, `"files": 12`)
	assert.NotContains(t, out, "\033[")
}

func TestPrettyHandler_EmptyAttrs(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(nil, WithDestinationWriter(&buf), WithOutputEmptyAttrs())
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "msg", 0)))
	assert.Contains(t, buf.String(), "{}")

	buf.Reset()

	h = NewPrettyHandler(nil, WithDestinationWriter(&buf))
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "msg", 0)))
	assert.NotContains(t, buf.String(), "{}")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf)))
	logger.With("run_id", "r1").WithGroup("job").Warn("failed", "index", 2)

	out := buf.String()
	assert.Contains(t, out, `"run_id": "r1"`)
	assert.Contains(t, out, `"job": {`)
	assert.Contains(t, out, `"index": 2`)
}

func TestPrettyHandler_ReplaceAttrDropsTime(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(&slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		},
	}, WithDestinationWriter(&buf))

	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)))
	assert.Equal(t, "ERROR: boom\n", buf.String())
}

func TestPrettyHandler_Colour(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(nil, WithDestinationWriter(&buf), WithColour())
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)))
	assert.Contains(t, buf.String(), "\033[31mERROR:\033[0m")
}

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failingWriter{}))
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0))
	assert.ErrorIs(t, err, ErrIoWrite)
}
