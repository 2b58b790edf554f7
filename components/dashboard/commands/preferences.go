package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

// SaveCardPreferencesInput captures a viewer's card order and hidden cards.
type SaveCardPreferencesInput struct {
	Viewer      dashboard.ViewerContext `json:"-"`
	CardOrder   []string                `json:"card_order"`
	HiddenCards []string                `json:"hidden_cards"`
}

type preferenceService interface {
	SavePreferences(ctx context.Context, viewer dashboard.ViewerContext, overrides dashboard.LayoutOverrides) error
}

// SaveCardPreferencesCommand persists per-viewer card overrides.
type SaveCardPreferencesCommand struct {
	service   preferenceService
	telemetry Telemetry
}

// NewSaveCardPreferencesCommand creates the command.
func NewSaveCardPreferencesCommand(service preferenceService, telemetry Telemetry) *SaveCardPreferencesCommand {
	return &SaveCardPreferencesCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveCardPreferencesInput] = (*SaveCardPreferencesCommand)(nil)

// Execute stores the provided overrides for the viewer.
func (c *SaveCardPreferencesCommand) Execute(ctx context.Context, msg SaveCardPreferencesInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.Viewer.Key() == "" {
		return errMissingSession
	}
	overrides := dashboard.LayoutOverrides{
		Locale:        msg.Viewer.Locale,
		CardOrder:     msg.CardOrder,
		HiddenWidgets: make(map[string]bool, len(msg.HiddenCards)),
	}
	for _, code := range msg.HiddenCards {
		overrides.HiddenWidgets[code] = true
	}
	if err := c.service.SavePreferences(ctx, msg.Viewer, overrides); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.preferences.save", map[string]any{
		"session":    msg.Viewer.SessionID,
		"ordered":    len(msg.CardOrder),
		"hidden_cnt": len(msg.HiddenCards),
	})
	return nil
}
