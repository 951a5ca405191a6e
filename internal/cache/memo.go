// Package cache memoizes recomputed query results keyed by their canonical
// parameter key.
package cache

import (
	"context"
	"time"

	"better-pypi-stats/internal/observability"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Memo caches the values produced by a load function. Concurrent loads of
// the same key share one call. Failed loads are never cached.
type Memo[V any] struct {
	name    string
	entries *expirable.LRU[string, V]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewMemo creates a memo holding up to size entries for ttl each. A size of
// zero or less disables caching, but concurrent loads are still shared.
// metrics may be nil.
func NewMemo[V any](name string, size int, ttl time.Duration, metrics *observability.Metrics) *Memo[V] {
	memo := &Memo[V]{name: name, metrics: metrics}
	if size > 0 {
		memo.entries = expirable.NewLRU[string, V](size, nil, ttl)
	}
	return memo
}

// Get returns the cached value for key, or calls load and caches its result.
func (m *Memo[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if m.entries != nil {
		if value, ok := m.entries.Get(key); ok {
			if m.metrics != nil {
				m.metrics.RecordCacheHit(m.name)
			}
			return value, nil
		}
	}
	if m.metrics != nil {
		m.metrics.RecordCacheMiss(m.name)
	}

	result := m.group.DoChan(key, func() (any, error) {
		// The load outlives a canceled caller so that other waiters still get
		// the result.
		value, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return value, err
		}
		if m.entries != nil {
			m.entries.Add(key, value)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-result:
		if res.Shared && m.metrics != nil {
			m.metrics.RecordCacheShared(m.name)
		}
		value, _ := res.Val.(V)
		return value, res.Err
	}
}

// Len is the number of cached entries.
func (m *Memo[V]) Len() int {
	if m.entries == nil {
		return 0
	}
	return m.entries.Len()
}

// Purge drops every cached entry.
func (m *Memo[V]) Purge() {
	if m.entries != nil {
		m.entries.Purge()
	}
}
