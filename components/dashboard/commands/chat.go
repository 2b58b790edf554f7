package commands

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-predify/pkg/activity"
	"github.com/goliatone/go-predify/pkg/assistant"
)

// SendChatInput is one message from the seller to the assistant.
type SendChatInput struct {
	SessionID string `json:"-"`
	Text      string `json:"text"`
}

type chatService interface {
	Chat(ctx context.Context, sessionID, text string) (assistant.Message, error)
}

// SendChatCommand forwards a chat message. The reply is appended to the
// session transcript and read back through the history query.
type SendChatCommand struct {
	service   chatService
	activity  *activity.Emitter
	telemetry Telemetry
}

// NewSendChatCommand creates the command.
func NewSendChatCommand(service chatService, emitter *activity.Emitter, telemetry Telemetry) *SendChatCommand {
	return &SendChatCommand{service: service, activity: emitter, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SendChatInput] = (*SendChatCommand)(nil)

// Execute sends the message.
func (c *SendChatCommand) Execute(ctx context.Context, msg SendChatInput) error {
	if c.service == nil {
		return errMissingService
	}
	if strings.TrimSpace(msg.SessionID) == "" {
		return errMissingSession
	}
	reply, err := c.service.Chat(ctx, msg.SessionID, msg.Text)
	if err != nil {
		return err
	}
	emitActivity(ctx, c.activity, c.telemetry, activity.Event{
		Verb:       "seller.chat.message",
		ActorID:    msg.SessionID,
		ObjectType: "chat",
		ObjectID:   msg.SessionID,
		Metadata:   map[string]any{"chars": len(msg.Text)},
	})
	c.telemetry.Record(ctx, "assistant.chat", map[string]any{
		"session":  msg.SessionID,
		"fallback": reply.Text == assistant.ChatFallback,
	})
	return nil
}
