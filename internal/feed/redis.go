package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisBus carries feed events over Redis pub/sub so that every service
// instance and connected client observes the same stream.
type redisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus creates a Redis-backed bus.
func NewRedisBus(client *redis.Client, logger *zap.Logger) Bus {
	return &redisBus{client: client, logger: logger}
}

func (b *redisBus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, handler HandlerFunc, channels ...string) (func(), error) {
	sub := b.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("discarding malformed feed event",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(event)
		}
	}()

	return func() { _ = sub.Close() }, nil
}
