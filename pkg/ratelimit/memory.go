package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync"
)

type bucket struct {
	count     atomic.Int64
	expiresAt time.Time
}

// MemoryStore is a process-scoped counter store. It holds at most maxKeys
// buckets and removes expired buckets every cleanup interval until Stop is
// called.
type MemoryStore struct {
	buckets *xsync.MapOf[string, *bucket]
	size    atomic.Int64
	maxKeys int64
	now     func() time.Time
	stop    chan struct{}
}

func NewMemoryStore(maxKeys int, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		buckets: xsync.NewMapOf[*bucket](),
		maxKeys: int64(maxKeys),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	}

	return s
}

func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()
	b, loaded := s.buckets.LoadOrStore(key, &bucket{expiresAt: now.Add(ttl)})

	if !loaded {
		if s.maxKeys > 0 && s.size.Add(1) > s.maxKeys {
			s.Cleanup()
			if s.size.Load() > s.maxKeys {
				if _, ok := s.buckets.LoadAndDelete(key); ok {
					s.size.Add(-1)
				}
				return 0, ErrStoreFull
			}
		}
	}

	return b.count.Add(1), nil
}

// Cleanup removes every expired bucket.
func (s *MemoryStore) Cleanup() {
	now := s.now()
	s.buckets.Range(func(key string, b *bucket) bool {
		if now.After(b.expiresAt) {
			if _, ok := s.buckets.LoadAndDelete(key); ok {
				s.size.Add(-1)
			}
		}
		return true
	})
}

func (s *MemoryStore) Len() int {
	return int(s.size.Load())
}

func (s *MemoryStore) Stop() {
	close(s.stop)
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}
