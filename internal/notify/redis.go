package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "marketplace:events"

// RedisPublisher publishes events as JSON on a pub/sub channel for
// subscribers outside this process.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

func (p RedisPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ch := p.Channel
	if ch == "" {
		ch = DefaultRedisChannel
	}
	return p.Client.Publish(ctx, ch, body).Err()
}
