package activity

import "context"

// Config toggles activity emission.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter stamps a default channel on events and forwards them to hooks.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

// NewEmitter builds an emitter. It stays disabled when no hooks are given.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &Emitter{hooks: hooks, cfg: cfg}
}

// Enabled reports whether events will reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && len(e.hooks) > 0
}

// Emit records evt through every hook.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if !e.Enabled() {
		return nil
	}
	if evt.Channel == "" {
		evt.Channel = e.cfg.Channel
	}
	return e.hooks.Notify(ctx, evt)
}

// CaptureHook stores events in memory for tests and local inspection.
type CaptureHook struct {
	Events []Event
}

// Notify appends evt.
func (h *CaptureHook) Notify(_ context.Context, evt Event) error {
	h.Events = append(h.Events, evt)
	return nil
}
