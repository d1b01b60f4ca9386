package repository

import (
	"context"

	"github.com/hatsu-chat/backend/pkg/xcontext"
)

const defaultBatchSize = 100

// Cursor iterates lazily over the rows matching a filter, loading one batch
// per round trip. It is finite and can be restarted with Reset.
type Cursor[T any] struct {
	ctx     context.Context
	c       *collection[T]
	filter  Filter
	options findOptions

	batchSize int
	batch     []T
	index     int
	offset    int
	read      int
	exhausted bool
	current   *T
	err       error
}

func newCursor[T any](ctx context.Context, c *collection[T], filter Filter, options findOptions) *Cursor[T] {
	batchSize := defaultBatchSize
	if n := xcontext.Configs(ctx).Store.BatchSize; n > 0 {
		batchSize = n
	}

	return &Cursor[T]{
		ctx:       ctx,
		c:         c,
		filter:    filter,
		options:   options,
		batchSize: batchSize,
	}
}

// Next advances the cursor. It returns false when there is no more row or an
// error happened, check Err to distinguish them.
func (cur *Cursor[T]) Next() bool {
	if cur.err != nil {
		return false
	}

	if cur.options.limit > 0 && cur.read >= cur.options.limit {
		return false
	}

	if cur.index >= len(cur.batch) {
		if cur.exhausted {
			return false
		}

		size := cur.batchSize
		if cur.options.limit > 0 && cur.options.limit-cur.read < size {
			size = cur.options.limit - cur.read
		}

		batch, err := cur.c.findBatch(cur.ctx, cur.filter, cur.options, cur.offset, size)
		if err != nil {
			cur.err = err
			return false
		}

		cur.batch = batch
		cur.index = 0
		cur.offset += len(batch)
		if len(batch) < size {
			cur.exhausted = true
		}

		if len(batch) == 0 {
			return false
		}
	}

	cur.current = &cur.batch[cur.index]
	cur.index++
	cur.read++
	return true
}

func (cur *Cursor[T]) Value() *T {
	return cur.current
}

func (cur *Cursor[T]) Err() error {
	return cur.err
}

// Reset rewinds the cursor to the first row. The rows are loaded again.
func (cur *Cursor[T]) Reset() {
	cur.batch = nil
	cur.index = 0
	cur.offset = 0
	cur.read = 0
	cur.exhausted = false
	cur.current = nil
	cur.err = nil
}

// All drains the cursor.
func (cur *Cursor[T]) All() ([]T, error) {
	rows := []T{}
	for cur.Next() {
		rows = append(rows, *cur.Value())
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}
