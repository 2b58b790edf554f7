package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

// SaveSettingsInput carries a partial settings update.
type SaveSettingsInput struct {
	Viewer dashboard.ViewerContext `json:"-"`
	Patch  dashboard.SettingsPatch `json:"patch"`
}

type settingsService interface {
	SaveSettings(ctx context.Context, viewer dashboard.ViewerContext, patch dashboard.SettingsPatch) (dashboard.SellerSettings, error)
}

// SaveSettingsCommand validates and forwards a settings patch.
type SaveSettingsCommand struct {
	service   settingsService
	telemetry Telemetry
}

// NewSaveSettingsCommand creates the command.
func NewSaveSettingsCommand(service settingsService, telemetry Telemetry) *SaveSettingsCommand {
	return &SaveSettingsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveSettingsInput] = (*SaveSettingsCommand)(nil)

// Execute saves the patch.
func (c *SaveSettingsCommand) Execute(ctx context.Context, msg SaveSettingsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if _, err := c.service.SaveSettings(ctx, msg.Viewer, msg.Patch); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "seller.settings.save", map[string]any{"session": msg.Viewer.SessionID})
	return nil
}
