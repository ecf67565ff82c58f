package repository

import (
	"context"
	"time"

	"telegram-ad-moderation/internal/domain/model"
)

// QueueStats is a snapshot of the moderation queue.
type QueueStats struct {
	Pending          int        `json:"pending"`
	Claimed          int        `json:"claimed"`
	OldestEnqueuedAt *time.Time `json:"oldest_enqueued_at,omitempty"`
}

// ModerationQueue orders pending submissions for review. It holds submission ids only
// and keeps at most one task per submission.
type ModerationQueue interface {
	// Enqueue is idempotent; it reports false when the submission is already queued.
	Enqueue(ctx context.Context, submissionID string, at time.Time) (bool, error)
	// Claim returns the oldest unclaimed task and marks it claimed by moderatorID.
	// It fails with domain.ErrQueueEmpty when nothing is available.
	Claim(ctx context.Context, moderatorID int64, at time.Time) (*model.ModerationTask, error)
	// Release removes the task for submissionID; unknown ids are ignored.
	Release(ctx context.Context, submissionID string) error
	Get(ctx context.Context, submissionID string) (*model.ModerationTask, error)
	// Unclaim returns claims taken before olderThan to the unclaimed pool.
	Unclaim(ctx context.Context, olderThan time.Time) (int, error)
	Stats(ctx context.Context) (QueueStats, error)
}
