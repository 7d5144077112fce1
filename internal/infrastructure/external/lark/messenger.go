package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/reportdesk/internal/application/port"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

const (
	// receiveIDTypeEmail addresses users by their directory email
	receiveIDTypeEmail = "email"
	msgTypeText        = "text"
)

// messageCreator is the part of the IM API the messenger uses
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger delivers notifications as Lark text messages.
// Implements port.MessageSender.
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a Lark message sender
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: client.GetClient().Im.Message,
		logger:   logger,
	}
}

// Name identifies the channel in logs
func (m *Messenger) Name() string { return "lark" }

// Send posts msg to the Lark user registered under msg.To
func (m *Messenger) Send(ctx context.Context, msg port.OutboundMessage) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email cannot be empty")
	}

	body, err := messageBody(msg)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeEmail).
		Body(body).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send Lark message",
			zap.String("to", msg.To),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("Lark API returned failure",
			zap.String("to", msg.To),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Lark message sent",
		zap.String("message_id", messageID),
		zap.String("to", msg.To))

	return nil
}

// messageBody addresses a text message to the user registered under msg.To
func messageBody(msg port.OutboundMessage) (*larkim.CreateMessageReqBody, error) {
	content, err := textContent(msg)
	if err != nil {
		return nil, err
	}
	return larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(msg.To).
		MsgType(msgTypeText).
		Content(content).
		Build(), nil
}

// textContent builds the JSON content of a text message
func textContent(msg port.OutboundMessage) (string, error) {
	text := strings.TrimSpace(msg.Subject + "\n" + msg.Body)
	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(data), nil
}

var _ port.MessageSender = (*Messenger)(nil)
