package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBackend keeps cart slots in Redis strings and announces writes over
// Redis Pub/Sub, so widget instances served by different processes share one
// cart.
type RedisBackend struct {
	client *redis.Client
	log    *logrus.Entry
}

func NewRedisBackend(client *redis.Client, log *logrus.Entry) *RedisBackend {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RedisBackend{client: client, log: log.WithField("backend", "redis")}
}

func (r *RedisBackend) Load(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisBackend) Publish(ctx context.Context, key string, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change failed: %w", err)
	}
	if err := r.client.Publish(ctx, channelName(key), payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning so
// that writes issued afterwards are never missed.
func (r *RedisBackend) Subscribe(ctx context.Context, key string, fn func(Change)) (func(), error) {
	sub := r.client.Subscribe(ctx, channelName(key))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	go func() {
		for msg := range sub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.log.WithError(err).Warn("dropping malformed cart change")
				continue
			}
			fn(change)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Close(); err != nil {
				r.log.WithError(err).Debug("closing cart subscription")
			}
		})
	}, nil
}

func channelName(key string) string {
	return fmt.Sprintf("cart-events:%s", key)
}
