package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores keys under prefix in Redis. The client is owned by the
// caller and is not closed by Close.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend wraps client. A ttl of zero keeps entries forever.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, b.prefix+key, value, b.ttl).Err()
}

func (b *RedisBackend) Close() error { return nil }
