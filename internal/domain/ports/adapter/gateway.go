// File: internal/domain/ports/adapter/gateway.go
package adapter

import (
	"context"

	"telegram-ad-moderation/internal/domain/model"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// OutboundMessage is a text (optionally with media and buttons) addressed to one chat.
// Media is sent before the text; inline buttons ride on the text message.
type OutboundMessage struct {
	ChatID  int64
	Text    string
	Media   []model.Media
	Buttons [][]InlineButton
	// Kind labels the message for logs and metrics ("approved", "review_card", ...).
	Kind string
}

// Ack confirms the platform accepted the message.
type Ack struct {
	MessageID int
}

// MessageGateway abstracts the messaging platform transport.
type MessageGateway interface {
	// Receive streams inbound events until ctx is done.
	Receive(ctx context.Context) <-chan InboundEvent
	// Send makes a single delivery attempt. Errors unwrap to domain.ErrDelivery,
	// domain.ErrRateLimited or domain.ErrInvalidRecipient.
	Send(ctx context.Context, msg OutboundMessage) (Ack, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Notifier delivers outbound messages asynchronously with retry.
type Notifier interface {
	Notify(ctx context.Context, msg OutboundMessage)
}
