package telegram

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/domain/ports/adapter"
)

var _ adapter.MessageGateway = (*NoopBotAdapter)(nil)

// NoopBotAdapter is a gateway for local runs without Telegram: it never
// receives anything and logs outbound messages instead of sending them.
type NoopBotAdapter struct {
	mu     sync.Mutex
	nextID int
	log    *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	compLog := logger.With().Str("component", "NoopGateway").Logger()
	return &NoopBotAdapter{log: &compLog}
}

func (b *NoopBotAdapter) Receive(ctx context.Context) <-chan adapter.InboundEvent {
	out := make(chan adapter.InboundEvent)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}

func (b *NoopBotAdapter) Send(ctx context.Context, msg adapter.OutboundMessage) (adapter.Ack, error) {
	if err := ctx.Err(); err != nil {
		return adapter.Ack{}, err
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()
	b.log.Info().
		Int64("chat_id", msg.ChatID).
		Str("kind", msg.Kind).
		Int("media", len(msg.Media)).
		Int("button_rows", len(msg.Buttons)).
		Str("text", msg.Text).
		Msg("send")
	return adapter.Ack{MessageID: id}, nil
}

func (b *NoopBotAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	b.log.Debug().Str("callback_id", callbackID).Str("text", text).Msg("answer callback")
	return nil
}
