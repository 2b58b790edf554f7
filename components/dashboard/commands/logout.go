package commands

import (
	"context"
	"fmt"
	"strings"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/activity"
)

// LogoutInput ends a browser session.
type LogoutInput struct {
	SessionID string
}

type tokenClearer interface {
	Clear(ctx context.Context, id string) error
}

type chatResetter interface {
	Reset(sessionID string)
}

type viewerForgetter interface {
	ForgetViewer(viewer dashboard.ViewerContext)
}

type productsForgetter interface {
	Forget(sessionID string)
}

// LogoutDeps lists what a logout clears. Only Tokens is required.
type LogoutDeps struct {
	Tokens   tokenClearer
	Chat     chatResetter
	Viewers  viewerForgetter
	Products productsForgetter
	Activity *activity.Emitter
}

// LogoutCommand clears the token pair, chat transcript and per-session caches.
type LogoutCommand struct {
	deps      LogoutDeps
	telemetry Telemetry
}

// NewLogoutCommand wires the command.
func NewLogoutCommand(deps LogoutDeps, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{deps: deps, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute clears the session. Logging out an unknown session is not an error.
func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutInput) error {
	if c.deps.Tokens == nil {
		return errMissingService
	}
	id := strings.TrimSpace(msg.SessionID)
	if id == "" {
		return nil
	}
	if err := c.deps.Tokens.Clear(ctx, id); err != nil {
		return fmt.Errorf("commands: clear tokens: %w", err)
	}
	if c.deps.Chat != nil {
		c.deps.Chat.Reset(id)
	}
	if c.deps.Viewers != nil {
		c.deps.Viewers.ForgetViewer(dashboard.ViewerContext{SessionID: id})
	}
	if c.deps.Products != nil {
		c.deps.Products.Forget(id)
	}
	emitActivity(ctx, c.deps.Activity, c.telemetry, activity.Event{
		Verb:       "seller.logout",
		ActorID:    id,
		ObjectType: "session",
		ObjectID:   id,
	})
	c.telemetry.Record(ctx, "seller.logout", map[string]any{"session": id})
	return nil
}
