package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/infra/logging"
	"telegram-ad-moderation/internal/infra/metrics"
)

var _ adapter.Notifier = (*DeliveryNotifier)(nil)

// DeliveryNotifier sends outbound messages on the pool with retry.
// Delivery failures are logged and never reach the caller.
type DeliveryNotifier struct {
	pool    *Pool
	gateway adapter.MessageGateway
	cfg     config.DeliveryConfig
	log     *zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewDeliveryNotifier(pool *Pool, gateway adapter.MessageGateway, cfg config.DeliveryConfig, logger *zerolog.Logger) *DeliveryNotifier {
	compLog := logger.With().Str("component", "DeliveryNotifier").Logger()
	return &DeliveryNotifier{
		pool:    pool,
		gateway: gateway,
		cfg:     cfg,
		log:     &compLog,
		sleep:   sleepCtx,
	}
}

func (n *DeliveryNotifier) Notify(ctx context.Context, msg adapter.OutboundMessage) {
	if msg.ChatID == 0 {
		return
	}
	log := logging.With(ctx, n.log)
	err := n.pool.Submit(func(poolCtx context.Context) error {
		return n.deliver(poolCtx, msg)
	})
	if err != nil {
		metrics.IncDelivery("saturated")
		log.Error().Err(err).Int64("chat_id", msg.ChatID).Str("kind", msg.Kind).Msg("delivery dropped")
	}
}

// deliver sends media and text as separate steps so a retry never repeats a
// step that already went through.
func (n *DeliveryNotifier) deliver(ctx context.Context, msg adapter.OutboundMessage) error {
	for _, part := range splitParts(msg) {
		ok, err := n.sendWithRetry(ctx, part)
		if err != nil {
			metrics.IncDelivery("dropped")
			return err
		}
		if !ok {
			metrics.IncDelivery("dropped")
			return nil
		}
	}
	metrics.IncDelivery("sent")
	return nil
}

func splitParts(msg adapter.OutboundMessage) []adapter.OutboundMessage {
	if len(msg.Media) == 0 || msg.Text == "" {
		return []adapter.OutboundMessage{msg}
	}
	media := msg
	media.Text, media.Buttons = "", nil
	text := msg
	text.Media = nil
	return []adapter.OutboundMessage{media, text}
}

// sendWithRetry reports false when the failure is permanent.
func (n *DeliveryNotifier) sendWithRetry(ctx context.Context, msg adapter.OutboundMessage) (bool, error) {
	attempts := n.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		sendCtx := ctx
		cancel := func() {}
		if n.cfg.SendTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, n.cfg.SendTimeout)
		}
		_, err := n.gateway.Send(sendCtx, msg)
		cancel()
		if err == nil {
			return true, nil
		}
		lastErr = err

		if !domain.IsTransient(err) {
			n.log.Warn().Err(err).Int64("chat_id", msg.ChatID).Str("kind", msg.Kind).Msg("permanent delivery failure")
			return false, nil
		}
		if attempt == attempts {
			break
		}

		wait := n.backoff(attempt)
		var rl *domain.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		metrics.IncDelivery("retried")
		n.log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Str("kind", msg.Kind).Msg("retrying delivery")
		if err := n.sleep(ctx, wait); err != nil {
			return false, err
		}
	}
	return false, fmt.Errorf("delivery to %d gave up after %d attempts: %w", msg.ChatID, attempts, lastErr)
}

// backoff is base * 2^(attempt-1), capped at MaxBackoff.
func (n *DeliveryNotifier) backoff(attempt int) time.Duration {
	d := n.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if n.cfg.MaxBackoff > 0 && d >= n.cfg.MaxBackoff {
			return n.cfg.MaxBackoff
		}
	}
	if n.cfg.MaxBackoff > 0 && d > n.cfg.MaxBackoff {
		return n.cfg.MaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
