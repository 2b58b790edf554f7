package commands

import (
	"context"
	"fmt"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-predify/pkg/activity"
	"github.com/goliatone/go-predify/pkg/backend"
	"github.com/goliatone/go-predify/pkg/session"
)

// LoginInput exchanges a seller token for the session's JWT pair.
type LoginInput struct {
	SessionID   string `json:"-"`
	SellerToken string `json:"seller_token"`
}

type tokenWriter interface {
	Save(ctx context.Context, id string, tokens session.Tokens) error
}

// LoginCommand signs a seller in. Tokens are only stored after the backend
// issued an access token, so a failed attempt leaves the session untouched.
type LoginCommand struct {
	auth      backend.Authenticator
	tokens    tokenWriter
	activity  *activity.Emitter
	telemetry Telemetry
}

// NewLoginCommand wires the command. A nil emitter disables activity.
func NewLoginCommand(auth backend.Authenticator, tokens tokenWriter, emitter *activity.Emitter, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{auth: auth, tokens: tokens, activity: emitter, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

// Execute performs the login.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.auth == nil || c.tokens == nil {
		return errMissingService
	}
	if strings.TrimSpace(msg.SessionID) == "" {
		return errMissingSession
	}
	if strings.TrimSpace(msg.SellerToken) == "" {
		return backend.ErrBlankSellerToken
	}
	result, err := c.auth.Login(ctx, msg.SellerToken)
	if err != nil {
		err = backend.RejectLogin(err)
		c.telemetry.Record(ctx, "seller.login_error", map[string]any{"error": backend.ErrorMessage(err)})
		return err
	}
	if err := c.tokens.Save(ctx, msg.SessionID, session.Tokens{Access: result.Access, Refresh: result.Refresh}); err != nil {
		return fmt.Errorf("commands: store tokens: %w", err)
	}

	sellerID := ""
	if result.Seller.ID != nil {
		sellerID = fmt.Sprint(result.Seller.ID)
	}
	emitActivity(ctx, c.activity, c.telemetry, activity.Event{
		Verb:       "seller.login",
		ActorID:    msg.SessionID,
		ObjectType: "seller",
		ObjectID:   sellerID,
		Metadata: map[string]any{
			"shop_title": result.Seller.ShopTitle,
			"is_fake":    result.IsFake,
		},
	})
	c.telemetry.Record(ctx, "seller.login", map[string]any{
		"seller_id": sellerID,
		"is_fake":   result.IsFake,
	})
	return nil
}
