package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// TelemetryFunc adapts a function to Telemetry.
type TelemetryFunc func(ctx context.Context, event string, payload map[string]any)

// Record implements Telemetry.
func (f TelemetryFunc) Record(ctx context.Context, event string, payload map[string]any) {
	if f != nil {
		f(ctx, event, payload)
	}
}

// LogTelemetry writes events as structured slog records. Events whose name
// ends in ".error" are logged at warn level.
type LogTelemetry struct {
	logger *slog.Logger
}

// NewLogTelemetry wraps logger. A nil logger uses slog.Default.
func NewLogTelemetry(logger *slog.Logger) *LogTelemetry {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTelemetry{logger: logger}
}

// Record implements Telemetry.
func (t *LogTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, payload[k]))
	}
	level := slog.LevelInfo
	if strings.HasSuffix(event, ".error") || strings.HasSuffix(event, "_error") {
		level = slog.LevelWarn
	}
	t.logger.LogAttrs(ctx, level, event, attrs...)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
