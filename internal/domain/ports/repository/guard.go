package repository

import (
	"context"
	"time"
)

// Locker provides a short-lived mutual exclusion scoped to a key.
type Locker interface {
	// TryLock fails with domain.ErrLockBusy when another holder owns key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// CooldownStore remembers when a user last posted in a category.
type CooldownStore interface {
	// Remaining returns zero when no cooldown is active.
	Remaining(ctx context.Context, userID int64, category string) (time.Duration, error)
	Start(ctx context.Context, userID int64, category string, d time.Duration) error
}

// MediaGroupIndex ties a Telegram media group to the submission built from its first item.
type MediaGroupIndex interface {
	// Reserve marks groupID as seen. On a repeat sighting it returns the bound
	// submission id, which stays empty until Bind.
	Reserve(ctx context.Context, groupID string, ttl time.Duration) (first bool, submissionID string, err error)
	Bind(ctx context.Context, groupID, submissionID string, ttl time.Duration) error
}

// RateLimiter is a fixed-window counter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
