package keylock

import (
	"hash/fnv"
	"sort"
	"sync"
)

const DefaultStripes = 256

// Locker serializes writers per key. Keys are hashed onto a fixed set of
// mutexes, so two different keys may share a stripe but one key always maps to
// the same stripe. Readers of a key only exclude its writers.
type Locker struct {
	stripes []sync.RWMutex
}

func New(stripes int) *Locker {
	if stripes <= 0 {
		stripes = DefaultStripes
	}

	return &Locker{stripes: make([]sync.RWMutex, stripes)}
}

func (l *Locker) index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}

// Lock locks the stripe of key and returns its unlock function.
func (l *Locker) Lock(key string) func() {
	return l.LockMany(key)
}

// LockMany locks the stripes of every key in ascending stripe order, so two
// callers locking overlapping key sets can never deadlock.
func (l *Locker) LockMany(keys ...string) func() {
	indexes := l.indexes(keys)
	for _, i := range indexes {
		l.stripes[i].Lock()
	}

	return func() {
		for j := len(indexes) - 1; j >= 0; j-- {
			l.stripes[indexes[j]].Unlock()
		}
	}
}

// RLockMany is LockMany for readers.
func (l *Locker) RLockMany(keys ...string) func() {
	indexes := l.indexes(keys)
	for _, i := range indexes {
		l.stripes[i].RLock()
	}

	return func() {
		for j := len(indexes) - 1; j >= 0; j-- {
			l.stripes[indexes[j]].RUnlock()
		}
	}
}

// indexes returns the distinct stripes of keys in ascending order.
func (l *Locker) indexes(keys []string) []int {
	indexes := make([]int, 0, len(keys))
	seen := make(map[int]struct{}, len(keys))
	for _, key := range keys {
		i := l.index(key)
		if _, ok := seen[i]; ok {
			continue
		}

		seen[i] = struct{}{}
		indexes = append(indexes, i)
	}

	sort.Ints(indexes)
	return indexes
}
