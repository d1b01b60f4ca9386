package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockRedisClient struct {
	counters map[string]int64
	ttls     map[string]time.Duration
}

func (m *mockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	_, ok := m.counters[key]
	return ok, nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.counters, key)
	}
	return nil
}

func (m *mockRedisClient) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.counters[key]++
	if _, ok := m.ttls[key]; !ok {
		m.ttls[key] = ttl
	}
	return m.counters[key], nil
}

func (m *mockRedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return m.ttls[key], nil
}

func newFixedLimiter(store Store, now time.Time, rules ...Rule) *Limiter {
	l := New(store, rules...)
	l.now = func() time.Time { return now }
	return l
}

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	store := NewMemoryStore(100, 0)
	limiter := newFixedLimiter(store, now)

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "POST", "/createMessage", "10.0.0.1")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := limiter.Allow(ctx, "POST", "/createMessage", "10.0.0.1")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, time.Second, result.Rule.Period)
	require.Equal(t, time.Second, result.RetryAfter)

	// Another caller address has its own counters.
	result, err = limiter.Allow(ctx, "POST", "/createMessage", "10.0.0.2")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	// The next window starts from zero for the per-second rule.
	limiter.now = func() time.Time { return now.Add(time.Second) }
	result, err = limiter.Allow(ctx, "POST", "/createMessage", "10.0.0.1")
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestLimiter_WithRoute(t *testing.T) {
	ctx := context.Background()
	client := &mockRedisClient{counters: map[string]int64{}, ttls: map[string]time.Duration{}}
	limiter := newFixedLimiter(NewRedisStore(client), time.Unix(1700000000, 0)).
		WithRoute("/register", Rule{Limit: 1, Period: time.Hour})

	result, err := limiter.Allow(ctx, "POST", "/register", "10.0.0.1")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, "POST", "/register", "10.0.0.1")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, time.Hour, result.Rule.Period)

	for _, ttl := range client.ttls {
		require.Equal(t, time.Hour, ttl)
	}
}

func TestMemoryStore_Incr(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100, 0)

	for i := int64(1); i <= 3; i++ {
		count, err := store.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Incr(ctx, "concurrent", time.Minute)
		}()
	}
	wg.Wait()

	count, err := store.Incr(ctx, "concurrent", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(101), count)
	require.Equal(t, 2, store.Len())
}

func TestMemoryStore_Bounded(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	store := NewMemoryStore(2, 0)
	store.now = func() time.Time { return now }

	_, err := store.Incr(ctx, "a", time.Second)
	require.NoError(t, err)
	_, err = store.Incr(ctx, "b", time.Second)
	require.NoError(t, err)

	_, err = store.Incr(ctx, "c", time.Second)
	require.ErrorIs(t, err, ErrStoreFull)
	require.Equal(t, 2, store.Len())

	// Once the existing buckets expire there is room again.
	store.now = func() time.Time { return now.Add(2 * time.Second) }
	count, err := store.Incr(ctx, "c", time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, 1, store.Len())
}

func TestMemoryStore_Janitor(t *testing.T) {
	store := NewMemoryStore(10, 10*time.Millisecond)
	defer store.Stop()

	_, err := store.Incr(context.Background(), "a", time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
}
