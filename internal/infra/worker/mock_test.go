//go:build !integration

package worker

import (
	"context"
	"sync"

	"telegram-ad-moderation/internal/domain/ports/adapter"
)

type mockGateway struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, msg adapter.OutboundMessage) (adapter.Ack, error)
	sent     []adapter.OutboundMessage
	calls    int
}

func (m *mockGateway) Receive(ctx context.Context) <-chan adapter.InboundEvent {
	ch := make(chan adapter.InboundEvent)
	close(ch)
	return ch
}

func (m *mockGateway) Send(ctx context.Context, msg adapter.OutboundMessage) (adapter.Ack, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SendFunc != nil {
		ack, err := m.SendFunc(ctx, msg)
		if err != nil {
			return ack, err
		}
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return adapter.Ack{MessageID: 1}, nil
}

func (m *mockGateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func (m *mockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
