package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-ad-moderation/internal/domain/ports/repository"
)

var _ repository.CooldownStore = (*CooldownRepo)(nil)

// CooldownRepo tracks the per-user, per-category posting window.
type CooldownRepo struct {
	client RedisClient
}

func NewCooldownRepo(client RedisClient) *CooldownRepo {
	return &CooldownRepo{client: client}
}

func (r *CooldownRepo) key(userID int64, category string) string {
	return fmt.Sprintf("cooldown:%d:%s", userID, category)
}

func (r *CooldownRepo) Remaining(ctx context.Context, userID int64, category string) (time.Duration, error) {
	return r.client.TTL(ctx, r.key(userID, category))
}

func (r *CooldownRepo) Start(ctx context.Context, userID int64, category string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(userID, category), time.Now().UTC().Unix(), d)
}
