package skinwall

import (
	"sync"
	"time"
)

type entry[T any] struct {
	val   T
	expAt time.Time
}

// TTLCache 简单过期缓存；超过 limit 条时 Set 会先清理过期项
type TTLCache[T any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	limit int
	m     map[string]entry[T]
}

func NewTTLCache[T any](ttl time.Duration, limit int) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, limit: limit, m: make(map[string]entry[T])}
}

func (c *TTLCache[T]) Get(k string) (T, bool) {
	var zero T
	c.mu.RLock()
	e, ok := c.m[k]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && !e.expAt.IsZero() && time.Now().After(e.expAt) {
		return zero, false
	}
	return e.val, true
}

func (c *TTLCache[T]) Set(k string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.m) >= c.limit {
		c.sweepLocked()
		if len(c.m) >= c.limit {
			// 仍然满：整体清空，转码结果可以重算
			c.m = make(map[string]entry[T])
		}
	}
	exp := time.Time{}
	if c.ttl > 0 {
		exp = time.Now().Add(c.ttl)
	}
	c.m[k] = entry[T]{val: v, expAt: exp}
}

func (c *TTLCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *TTLCache[T]) sweepLocked() {
	now := time.Now()
	for k, e := range c.m {
		if !e.expAt.IsZero() && now.After(e.expAt) {
			delete(c.m, k)
		}
	}
}
