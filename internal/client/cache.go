package client

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads the authoritative value for a cache.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache is one observable resource: a value, the time it was fetched, a
// fixed TTL, and an ordered list of subscribers. Reads within the TTL are
// served locally; anything else fetches, stores, and publishes. Pushed
// updates and local mutations go through Set/Update so subscribers never
// need to know where a change came from.
type Cache[T any] struct {
	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	ttl       time.Duration
	fetch     FetchFunc[T]
	subs      map[int]func(T)
	nextSub   int
}

func NewCache[T any](ttl time.Duration, fetch FetchFunc[T]) *Cache[T] {
	return &Cache[T]{
		ttl:   ttl,
		fetch: fetch,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the cached value if it is fresh, otherwise fetches, stores,
// and publishes. A fetch superseded by a concurrent Set simply overwrites;
// results are idempotent and the TTL bounds the staleness of an extra late
// write.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(v)
	return v, nil
}

// Refresh fetches unconditionally, ignoring freshness.
func (c *Cache[T]) Refresh(ctx context.Context) (T, error) {
	c.Invalidate()
	return c.Get(ctx)
}

// Peek returns the cached value without fetching. ok is false if nothing
// has been stored yet.
func (c *Cache[T]) Peek() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, !c.fetchedAt.IsZero()
}

// Set stores a known-good value and publishes it.
func (c *Cache[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	c.fetchedAt = time.Now()
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update applies fn to the cached value and publishes the result. If
// nothing has been fetched yet there is nothing to patch; the next Get will
// fetch the authoritative state anyway.
func (c *Cache[T]) Update(fn func(T) T) {
	c.mu.Lock()
	if c.fetchedAt.IsZero() {
		c.mu.Unlock()
		return
	}
	c.value = fn(c.value)
	c.fetchedAt = time.Now()
	v := c.value
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Invalidate forces the next Get to fetch. It does not publish; the refetch
// will.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}

// Subscribe registers a callback for every published value and returns its
// unsubscribe handle.
func (c *Cache[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// snapshotSubs must be called with the lock held; callbacks run without it.
func (c *Cache[T]) snapshotSubs() []func(T) {
	subs := make([]func(T), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}
