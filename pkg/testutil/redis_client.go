package testutil

import (
	"context"
	"time"
)

type MockRedisClient struct {
	ExistFunc       func(ctx context.Context, key string) (bool, error)
	DelFunc         func(ctx context.Context, keys ...string) error
	IncrWithTTLFunc func(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTLFunc         func(ctx context.Context, key string) (time.Duration, error)
}

func (m *MockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	if m.ExistFunc != nil {
		return m.ExistFunc(ctx, key)
	}

	return false, nil
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}

	return nil
}

func (m *MockRedisClient) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if m.IncrWithTTLFunc != nil {
		return m.IncrWithTTLFunc(ctx, key, ttl)
	}

	return 1, nil
}

func (m *MockRedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	if m.TTLFunc != nil {
		return m.TTLFunc(ctx, key)
	}

	return 0, nil
}
