// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/ports/repository"

	"github.com/google/uuid"
)

var _ repository.Locker = (*RedisLocker)(nil)

const (
	lockAttempts   = 5
	lockRetryDelay = 50 * time.Millisecond
)

type RedisLocker struct {
	cli RedisClient
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c}
}

// TryLock returns domain.ErrLockBusy when another holder keeps the key
// for all attempts.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < lockAttempts; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl)
		switch {
		case err != nil:
			lastErr = err
		case ok:
			return token, nil
		default:
			// held by someone else; earlier backend errors no longer matter
			lastErr = nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrLockBusy
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.CompareAndDelete(ctx, key, token)
	return err
}
