// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package cache provides a read-through in-memory cache for rendered
// responses. Entries expire after a fixed TTL and are never invalidated by
// writes; readers may see data up to one TTL old.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

// Producer computes the value for a missing key.
type Producer func(ctx context.Context) ([]byte, error)

type entry struct {
	value   []byte
	expires time.Time
}

// Cache is a TTL cache with a background janitor. Concurrent misses for
// the same key share one producer call.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache whose janitor sweeps expired entries every interval.
// A non-positive interval disables the janitor. Call Close to stop it.
func New(interval time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if interval > 0 {
		go c.janitor(interval)
	} else {
		close(c.done)
	}
	return c
}

// GetOrCompute returns the cached value for key or stores the producer's
// result for ttl. Producer errors are returned and not cached.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, produce Producer) ([]byte, error) {
	if v, ok := c.get(key); ok {
		requests.WithLabelValues(resultHit).Inc()
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// A concurrent flight may have filled the key since the first check.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		// The flight outlives the first caller's cancellation.
		v, err := produce(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.set(key, v, ttl)
		return v, nil
	})
	if shared {
		requests.WithLabelValues(resultShared).Inc()
	} else {
		requests.WithLabelValues(resultMiss).Inc()
	}
	if err != nil {
		return nil, oops.Code("CACHE_PRODUCE_FAILED").With("key", key).Wrap(err)
	}
	return v.([]byte), nil
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor and waits for it to exit.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}
