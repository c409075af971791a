// ABOUTME: Thread-safe TTL- and size-bounded seen-set keyed by any comparable type
// ABOUTME: Used by the history poller to emit each message id only once

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry stores when a key was last marked and its position in the order list.
type entry[K comparable] struct {
	key      K
	markedAt time.Time
	element  *list.Element
}

// Cache remembers keys for ttl, holding at most maxSize of them. When full,
// the least recently marked key is evicted first.
type Cache[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]*entry[K]
	order   *list.List // oldest mark at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now             func() time.Time
	cleanupInterval time.Duration
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCleanupInterval sets how often expired keys are swept. Zero disables
// the background sweep; expired keys are then dropped lazily.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// New creates a cache with the given TTL and maximum size.
func New[K comparable](ttl time.Duration, maxSize int, opts ...Option) *Cache[K] {
	o := options{now: time.Now, cleanupInterval: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize <= 0 {
		maxSize = 1
	}

	c := &Cache[K]{
		seen:    make(map[K]*entry[K]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     o.now,
		done:    make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go c.cleanup(o.cleanupInterval)
	}
	return c
}

// Check reports whether key was marked within the TTL.
func (c *Cache[K]) Check(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(key)
}

// CheckAndMark marks key and reports whether it was already live. The check
// and the mark happen under one lock.
func (c *Cache[K]) CheckAndMark(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.liveLocked(key) {
		return true
	}
	c.markLocked(key)
	return false
}

// Mark records key as seen now.
func (c *Cache[K]) Mark(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key)
}

// Len returns the number of keys held, expired or not.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache[K]) liveLocked(key K) bool {
	e, ok := c.seen[key]
	if !ok {
		return false
	}
	if c.now().Sub(e.markedAt) < c.ttl {
		return true
	}
	c.removeLocked(e)
	return false
}

func (c *Cache[K]) markLocked(key K) {
	now := c.now()

	if e, ok := c.seen[key]; ok {
		e.markedAt = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			c.removeLocked(front.Value.(*entry[K]))
		}
	}

	e := &entry[K]{key: key, markedAt: now}
	e.element = c.order.PushBack(e)
	c.seen[key] = e
}

func (c *Cache[K]) removeLocked(e *entry[K]) {
	c.order.Remove(e.element)
	delete(c.seen, e.key)
}

func (c *Cache[K]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}

// Sweep drops every expired key. Marks are ordered by time, so it stops at
// the first live key.
func (c *Cache[K]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		e := front.Value.(*entry[K])
		if now.Sub(e.markedAt) < c.ttl {
			return
		}
		c.removeLocked(e)
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (c *Cache[K]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
