package redis

import (
	"context"
	"time"

	"telegram-ad-moderation/internal/domain/ports/repository"
)

var _ repository.MediaGroupIndex = (*MediaGroupIndex)(nil)

// MediaGroupIndex remembers which submission a Telegram media group became.
// The key holds an empty value between Reserve and Bind.
type MediaGroupIndex struct {
	client RedisClient
}

func NewMediaGroupIndex(client RedisClient) *MediaGroupIndex {
	return &MediaGroupIndex{client: client}
}

func mediaGroupKey(groupID string) string { return "media_group:" + groupID }

func (g *MediaGroupIndex) Reserve(ctx context.Context, groupID string, ttl time.Duration) (bool, string, error) {
	first, err := g.client.SetNX(ctx, mediaGroupKey(groupID), "", ttl)
	if err != nil || first {
		return first, "", err
	}
	id, err := g.client.Get(ctx, mediaGroupKey(groupID))
	return false, id, err
}

func (g *MediaGroupIndex) Bind(ctx context.Context, groupID, submissionID string, ttl time.Duration) error {
	return g.client.Set(ctx, mediaGroupKey(groupID), submissionID, ttl)
}
