package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/hatsu-chat/backend/pkg/xcontext"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrTimeout means the store did not answer within the configured timeout.
	// The call may be retried.
	ErrTimeout = errors.New("store call timed out")
)

// Filter is a conjunction of equality predicates keyed by column name. A slice
// value matches any of its elements.
type Filter map[string]any

// Patch maps column names to their new values.
type Patch map[string]any

type Collection[T any] interface {
	FindOne(ctx context.Context, filter Filter) (*T, error)
	Find(ctx context.Context, filter Filter, opts ...FindOption) *Cursor[T]
	Count(ctx context.Context, filter Filter) (int64, error)
	InsertOne(ctx context.Context, row *T) error
	InsertMany(ctx context.Context, rows []T) error
	UpdateOne(ctx context.Context, filter Filter, patch Patch) error
	DeleteOne(ctx context.Context, filter Filter) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

type FindOption func(*findOptions)

type findOptions struct {
	orderBy string
	desc    bool
	limit   int
}

// OrderBy sorts the cursor by column. Cursors are sorted by the primary key of
// the collection by default.
func OrderBy(column string, desc bool) FindOption {
	return func(o *findOptions) {
		o.orderBy = column
		o.desc = desc
	}
}

func Limit(n int) FindOption {
	return func(o *findOptions) {
		o.limit = n
	}
}

type collection[T any] struct {
	primaryKey []string
}

func newCollection[T any](primaryKey ...string) *collection[T] {
	return &collection[T]{primaryKey: primaryKey}
}

// db returns the database of ctx bounded by the store timeout.
func (c *collection[T]) db(ctx context.Context) (*gorm.DB, context.Context, context.CancelFunc) {
	timeout := xcontext.Configs(ctx).Store.Timeout
	if timeout <= 0 {
		return xcontext.DB(ctx).WithContext(ctx), ctx, func() {}
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	return xcontext.DB(tctx).WithContext(tctx), tctx, cancel
}

func (c *collection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	db, tctx, cancel := c.db(ctx)
	defer cancel()

	var row T
	if err := applyFilter(db, filter).Take(&row).Error; err != nil {
		return nil, wrapError(tctx, err)
	}

	return &row, nil
}

func (c *collection[T]) Find(ctx context.Context, filter Filter, opts ...FindOption) *Cursor[T] {
	options := findOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return newCursor(ctx, c, filter, options)
}

func (c *collection[T]) findBatch(
	ctx context.Context, filter Filter, options findOptions, offset, limit int,
) ([]T, error) {
	db, tctx, cancel := c.db(ctx)
	defer cancel()

	db = applyFilter(db, filter)
	if options.orderBy != "" {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: options.orderBy}, Desc: options.desc})
	}
	for _, pk := range c.primaryKey {
		if pk != options.orderBy {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: pk}, Desc: options.desc})
		}
	}

	var rows []T
	if err := db.Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, wrapError(tctx, err)
	}

	return rows, nil
}

func (c *collection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	db, tctx, cancel := c.db(ctx)
	defer cancel()

	var count int64
	if err := applyFilter(db.Model(new(T)), filter).Count(&count).Error; err != nil {
		return 0, wrapError(tctx, err)
	}

	return count, nil
}

func (c *collection[T]) InsertOne(ctx context.Context, row *T) error {
	db, tctx, cancel := c.db(ctx)
	defer cancel()

	if err := db.Create(row).Error; err != nil {
		return wrapError(tctx, err)
	}

	return nil
}

func (c *collection[T]) InsertMany(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	db, tctx, cancel := c.db(ctx)
	defer cancel()

	if err := db.Create(&rows).Error; err != nil {
		return wrapError(tctx, err)
	}

	return nil
}

// UpdateOne applies patch to the first row matching filter. It returns
// ErrNotFound if no row matches.
func (c *collection[T]) UpdateOne(ctx context.Context, filter Filter, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}

	db, tctx, cancel := c.db(ctx)
	defer cancel()

	var row T
	if err := applyFilter(db, filter).Take(&row).Error; err != nil {
		return wrapError(tctx, err)
	}

	if err := db.Model(&row).Updates(map[string]any(patch)).Error; err != nil {
		return wrapError(tctx, err)
	}

	return nil
}

func (c *collection[T]) DeleteOne(ctx context.Context, filter Filter) error {
	db, tctx, cancel := c.db(ctx)
	defer cancel()

	var row T
	if err := applyFilter(db, filter).Take(&row).Error; err != nil {
		return wrapError(tctx, err)
	}

	if err := db.Delete(&row).Error; err != nil {
		return wrapError(tctx, err)
	}

	return nil
}

// DeleteMany deletes every row matching filter and returns the number of
// deleted rows. An empty filter is rejected.
func (c *collection[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("delete without filter")
	}

	db, tctx, cancel := c.db(ctx)
	defer cancel()

	result := applyFilter(db, filter).Delete(new(T))
	if result.Error != nil {
		return 0, wrapError(tctx, result.Error)
	}

	return result.RowsAffected, nil
}

func applyFilter(db *gorm.DB, filter Filter) *gorm.DB {
	columns := maps.Keys(filter)
	slices.Sort(columns)

	for _, column := range columns {
		value := filter[column]
		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
			values := make([]any, 0, v.Len())
			for i := 0; i < v.Len(); i++ {
				values = append(values, v.Index(i).Interface())
			}

			db = db.Where(clause.IN{Column: clause.Column{Name: column}, Values: values})
		} else {
			db = db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
		}
	}

	return db
}

func wrapError(ctx context.Context, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return err
}
