package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/metrics"
)

// ClaimReaper periodically returns abandoned claims to the queue so another
// moderator can pick them up.
type ClaimReaper struct {
	interval time.Duration
	timeout  time.Duration
	queue    repository.ModerationQueue
	now      func() time.Time
	log      *zerolog.Logger
}

func NewClaimReaper(interval, claimTimeout time.Duration, queue repository.ModerationQueue, logger *zerolog.Logger) *ClaimReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "ClaimReaper").Logger()
	return &ClaimReaper{
		interval: interval,
		timeout:  claimTimeout,
		queue:    queue,
		now:      time.Now,
		log:      &compLog,
	}
}

func (w *ClaimReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("claim_timeout", w.timeout).Msg("Starting claim reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping claim reaper")
			return ctx.Err()
		case <-ticker.C:
			w.reap(ctx)
		}
	}
}

func (w *ClaimReaper) reap(ctx context.Context) int {
	n, err := w.queue.Unclaim(ctx, w.now().UTC().Add(-w.timeout))
	if err != nil {
		w.log.Error().Err(err).Msg("claim reaper error")
		return 0
	}
	if n > 0 {
		metrics.AddClaimsReaped(n)
		w.log.Info().Int("count", n).Msg("stale claims released")
	}
	return n
}
