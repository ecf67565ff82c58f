package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/metrics"
	"telegram-ad-moderation/internal/usecase"
)

// PoolStats reports connection pool usage (total, idle, in use).
type PoolStats func() (total, idle, inUse int32)

// QueueReconciler re-enqueues pending submissions the queue lost track of and
// refreshes the submission and queue gauges.
type QueueReconciler struct {
	interval    time.Duration
	subUC       usecase.SubmissionUseCase
	submissions repository.SubmissionRepository
	queue       repository.ModerationQueue
	poolStats   PoolStats
	log         *zerolog.Logger
}

func NewQueueReconciler(
	interval time.Duration,
	subUC usecase.SubmissionUseCase,
	submissions repository.SubmissionRepository,
	queue repository.ModerationQueue,
	poolStats PoolStats,
	logger *zerolog.Logger,
) *QueueReconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	compLog := logger.With().Str("component", "QueueReconciler").Logger()
	return &QueueReconciler{
		interval:    interval,
		subUC:       subUC,
		submissions: submissions,
		queue:       queue,
		poolStats:   poolStats,
		log:         &compLog,
	}
}

func (w *QueueReconciler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting queue reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping queue reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *QueueReconciler) runCheck(ctx context.Context) {
	n, err := w.subUC.RebuildQueue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("queue rebuild failed")
	}
	if n > 0 {
		w.log.Warn().Int("count", n).Msg("re-enqueued pending submissions missing from the queue")
	}

	counts, err := w.submissions.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to count submissions")
	} else {
		metrics.SetSubmissionsTotal(counts)
	}

	stats, err := w.queue.Stats(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to read queue stats")
	} else {
		metrics.SetQueueDepth(stats.Pending, stats.Claimed)
	}

	if w.poolStats != nil {
		metrics.SetDBPoolStats(w.poolStats())
	}
}
