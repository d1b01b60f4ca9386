package ratelimit

import (
	"context"
	"time"

	"github.com/hatsu-chat/backend/pkg/xredis"
)

type RedisStore struct {
	client xredis.Client
}

func NewRedisStore(client xredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return s.client.IncrWithTTL(ctx, key, ttl)
}
