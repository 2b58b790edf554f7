package dashboard

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogTelemetryWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	telemetry := NewLogTelemetry(logger)

	telemetry.Record(context.Background(), "dashboard.insights.load", map[string]any{"sku": "101", "viewer": "s"})
	telemetry.Record(context.Background(), "dashboard.insights.error", map[string]any{"error": "boom"})

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=dashboard.insights.load sku=101 viewer=s")
	assert.Contains(t, out, "level=WARN msg=dashboard.insights.error error=boom")
}

func TestTelemetryFuncAndNoop(t *testing.T) {
	var got string
	TelemetryFunc(func(_ context.Context, event string, _ map[string]any) { got = event }).Record(context.Background(), "x", nil)
	assert.Equal(t, "x", got)
	normalizeTelemetry(nil).Record(context.Background(), "ignored", nil)
}
