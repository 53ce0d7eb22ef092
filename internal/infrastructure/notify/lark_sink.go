package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/benefits-portal/internal/domain/event"
	"go.uber.org/zap"
)

// MessageSender delivers one IM message
type MessageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// LarkSink posts workflow events to a Lark group chat
type LarkSink struct {
	sender MessageSender
	chatID string
	logger *zap.Logger
}

// NewLarkSink creates a sink posting to chatID
func NewLarkSink(sender MessageSender, chatID string, logger *zap.Logger) *LarkSink {
	return &LarkSink{
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

// Handle sends a text message describing evt
func (s *LarkSink) Handle(ctx context.Context, evt *event.Event) error {
	if s.chatID == "" {
		return fmt.Errorf("chat id cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": FormatMessage(evt)})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	messageID, err := s.sender.SendMessage(ctx, "chat_id", s.chatID, "text", string(content))
	if err != nil {
		return fmt.Errorf("failed to notify %s: %w", evt.Type, err)
	}

	s.logger.Debug("Notification delivered",
		zap.String("event_type", evt.Type.String()),
		zap.String("message_id", messageID))
	return nil
}
