package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const RedisChannel = "etutoring:rooms"

type envelope struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// RedisBackplane relays frames between instances over a Redis pub/sub channel.
type RedisBackplane struct {
	client *redis.Client
	log    *slog.Logger

	mu  sync.Mutex
	sub *redis.PubSub
}

func NewRedisBackplane(client *redis.Client, log *slog.Logger) *RedisBackplane {
	return &RedisBackplane{client: client, log: log}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (b *RedisBackplane) Start(ctx context.Context, deliver DeliverFunc) error {
	sub := b.client.Subscribe(ctx, RedisChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", RedisChannel, err)
	}
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		for msg := range sub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("backplane_decode_error", "error", err)
				continue
			}
			deliver(env.Room, env.Frame)
		}
	}()
	return nil
}

func (b *RedisBackplane) Publish(ctx context.Context, room string, frame []byte) error {
	payload, err := json.Marshal(envelope{Room: room, Frame: frame})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, RedisChannel, payload).Err()
}

func (b *RedisBackplane) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}
