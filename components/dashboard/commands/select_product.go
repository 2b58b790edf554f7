package commands

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

// SelectProductInput picks the product whose insights a viewer sees.
type SelectProductInput struct {
	Viewer dashboard.ViewerContext `json:"-"`
	SKU    string                  `json:"sku"`
}

type insightLoader interface {
	LoadInsights(ctx context.Context, viewer dashboard.ViewerContext, sku string) (dashboard.Snapshot, error)
}

// SelectProductCommand starts the nine-way insight load for a product. The
// resulting state is read back through the snapshot query.
type SelectProductCommand struct {
	service   insightLoader
	telemetry Telemetry
}

// NewSelectProductCommand creates the command.
func NewSelectProductCommand(service insightLoader, telemetry Telemetry) *SelectProductCommand {
	return &SelectProductCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SelectProductInput] = (*SelectProductCommand)(nil)

// Execute loads the insights. A load overtaken by a newer selection returns
// dashboard.ErrSuperseded and leaves the newer state in place.
func (c *SelectProductCommand) Execute(ctx context.Context, msg SelectProductInput) error {
	if c.service == nil {
		return errMissingService
	}
	sku := strings.TrimSpace(msg.SKU)
	if sku == "" {
		return &dashboard.ValidationError{Err: errors.New("sku is required")}
	}
	if _, err := c.service.LoadInsights(ctx, msg.Viewer, sku); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.product.select", map[string]any{
		"session": msg.Viewer.SessionID,
		"sku":     sku,
	})
	return nil
}
