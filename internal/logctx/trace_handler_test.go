package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestTraceHandler(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	spanCtx, span := tp.Tracer("test").Start(context.Background(), "download")
	defer span.End()

	tests := []struct {
		name      string
		ctx       context.Context
		wantTrace bool
	}{
		{name: "without span", ctx: context.Background()},
		{name: "with span", ctx: spanCtx, wantTrace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := New(&buf, slog.LevelInfo)
			logger.InfoContext(tt.ctx, "resolved artifacts", "artifacts", 2)

			entry := decode(t, &buf)
			assert.Equal(t, "resolved artifacts", entry["msg"])
			assert.EqualValues(t, 2, entry["artifacts"])

			if !tt.wantTrace {
				assert.NotContains(t, entry, "trace_id")
				assert.NotContains(t, entry, "span_id")

				return
			}

			assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
			assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
		})
	}
}

func TestTraceHandler_Enabled(t *testing.T) {
	h := NewTraceHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestTraceHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer

	h := NewTraceHandler(slog.NewJSONHandler(&buf, nil))

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("component", "resolver")})
	assert.IsType(t, &TraceHandler{}, withAttrs)

	withGroup := withAttrs.WithGroup("probe")
	assert.IsType(t, &TraceHandler{}, withGroup)

	slog.New(withGroup).Info("probing", "arch", "x64")

	entry := decode(t, &buf)
	assert.Equal(t, "resolver", entry["component"])
	assert.Equal(t, map[string]any{"arch": "x64"}, entry["probe"])
}

func TestNewTraceHandler_NilHandler(t *testing.T) {
	assert.Panics(t, func() { NewTraceHandler(nil) })
}

func TestLoggerFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))

	var buf bytes.Buffer

	ctx := WithLogger(context.Background(), New(&buf, slog.LevelDebug))
	ctx, logger := With(ctx, "identity", "msedge-stable-win-x64")

	assert.Same(t, logger, LoggerFromContext(ctx))

	LoggerFromContext(ctx).Debug("cached")

	assert.Equal(t, "msedge-stable-win-x64", decode(t, &buf)["identity"])
}
