package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrStoreFull = errors.New("rate limit store is full")

// Rule allows at most Limit hits per fixed window of Period.
type Rule struct {
	Limit  int64
	Period time.Duration
}

var DefaultRules = []Rule{
	{Limit: 5, Period: time.Second},
	{Limit: 50, Period: time.Minute},
	{Limit: 10000, Period: time.Hour},
}

// Store keeps the hit counters. Keys expire after ttl.
type Store interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Limiter struct {
	store  Store
	rules  []Rule
	routes map[string][]Rule
	now    func() time.Time
}

func New(store Store, rules ...Rule) *Limiter {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	return &Limiter{
		store:  store,
		rules:  rules,
		routes: make(map[string][]Rule),
		now:    time.Now,
	}
}

// WithRoute replaces the rules applied to route. It must be called before the
// limiter serves any request.
func (l *Limiter) WithRoute(route string, rules ...Rule) *Limiter {
	l.routes[route] = rules
	return l
}

// Result describes the first rule whose limit was exceeded.
type Result struct {
	Allowed    bool
	Rule       Rule
	RetryAfter time.Duration
}

// Allow counts one hit of (method, route, addr) against every rule of the
// route. The hit is rejected if any rule is exceeded.
func (l *Limiter) Allow(ctx context.Context, method, route, addr string) (Result, error) {
	rules, ok := l.routes[route]
	if !ok {
		rules = l.rules
	}

	now := l.now()
	for _, rule := range rules {
		window := now.UnixNano() / int64(rule.Period)
		key := fmt.Sprintf("rate:%s:%s:%s:%d:%d", method, route, addr, rule.Period, window)

		count, err := l.store.Incr(ctx, key, rule.Period)
		if err != nil {
			return Result{}, err
		}

		if count > rule.Limit {
			windowEnd := time.Unix(0, (window+1)*int64(rule.Period))
			return Result{Allowed: false, Rule: rule, RetryAfter: windowEnd.Sub(now)}, nil
		}
	}

	return Result{Allowed: true}, nil
}
