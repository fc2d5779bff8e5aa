package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache 固定容量的 LRU，每个条目有统一的 TTL，过期条目在读取时淘汰
type Cache[V any] struct {
	lru *lru.Cache[string, entry[V]]
	ttl time.Duration
	now func() time.Time
}

func NewCache[V any](size int, ttl time.Duration) (*Cache[V], error) {
	l, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l, ttl: ttl, now: time.Now}, nil
}

// WithClock 替换过期判断用的时钟
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.now = now
	return c
}

func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Get 未命中或已过期时 ok 为 false
func (c *Cache[V]) Get(key string) (value V, ok bool) {
	e, found := c.lru.Get(key)
	if !found {
		return value, false
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return value, false
	}
	return e.value, true
}

func (c *Cache[V]) Delete(keys ...string) {
	for _, k := range keys {
		c.lru.Remove(k)
	}
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
