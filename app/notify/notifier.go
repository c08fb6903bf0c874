package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okastrup/tagsync/app/database"
)

// TagEvent is the payload published after a tag finishes a sync pass.
// Consumers typically invalidate rendered pages for the tag's slug.
type TagEvent struct {
	ID     string     `json:"id"`
	Slug   string     `json:"slug"`
	Synced *time.Time `json:"synced,omitempty"`
}

// RedisNotifier announces finished sync passes on a redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) TagChanged(ctx context.Context, tag *database.Tag) error {
	payload, err := json.Marshal(TagEvent{ID: tag.ID, Slug: tag.Slug, Synced: tag.Synced})
	if err != nil {
		return fmt.Errorf("failed to encode tag event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish tag event: %w", err)
	}
	return nil
}
