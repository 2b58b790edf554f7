package commands

import (
	"context"
	"errors"

	"github.com/goliatone/go-predify/pkg/activity"
)

var (
	errMissingService = errors.New("commands: service is required")
	errMissingSession = errors.New("commands: session id is required")
)

// Telemetry allows commands to emit structured events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// emitActivity sends evt and records a failing hook as
// "dashboard.activity.error" without failing the command.
func emitActivity(ctx context.Context, emitter *activity.Emitter, telemetry Telemetry, evt activity.Event) {
	if err := emitter.Emit(ctx, evt); err != nil {
		telemetry.Record(ctx, "dashboard.activity.error", map[string]any{
			"verb":  evt.Verb,
			"error": err.Error(),
		})
	}
}
