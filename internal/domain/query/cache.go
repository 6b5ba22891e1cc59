// Package query is a keyed entity cache with stale windows, in-flight read
// deduplication and generation-based invalidation.
package query

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrDisabled is returned by reads whose options disable them (for example a detail query without id).
var ErrDisabled = errors.New("query disabled")

// Key identifies a cached query. Params is the canonical encoding of the query arguments.
type Key struct {
	Entity string
	Params string
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Entity
	}
	return k.Entity + "/" + k.Params
}

// Options tune a single read.
type Options struct {
	// StaleTime is how long a value stays fresh. Zero means stale as soon as stored.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failed fetch.
	Retry int
	// ShouldRetry filters retryable errors; nil retries anything but context errors.
	ShouldRetry func(error) bool
	// Disabled short-circuits the read with ErrDisabled.
	Disabled bool
}

// Logger is what the cache logs through.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config configures a Cache.
type Config struct {
	MaxEntries int
	RetryDelay time.Duration
	Logger     Logger
}

// Stats counts cache activity.
type Stats struct {
	Hits          int64 `json:"hits"`
	StaleHits     int64 `json:"stale_hits"`
	Misses        int64 `json:"misses"`
	Fetches       int64 `json:"fetches"`
	Errors        int64 `json:"errors"`
	Discarded     int64 `json:"discarded"`
	Invalidations int64 `json:"invalidations"`
	Evictions     int64 `json:"evictions"`
	Size          int   `json:"size"`
}

type entry struct {
	value      any
	hasValue   bool
	invalid    bool
	gen        uint64
	// version counts stored fetch results.
	version    uint64
	updatedAt  time.Time
	accessedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	stats   Stats

	group      singleflight.Group
	maxEntries int
	retryDelay time.Duration
	logger     Logger
	now        func() time.Time

	// base detaches shared fetches from their callers; cancelled by Close.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	base, cancel := context.WithCancel(context.Background())
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Cache{
		entries:    make(map[Key]*entry),
		maxEntries: cfg.MaxEntries,
		retryDelay: delay,
		logger:     cfg.Logger,
		now:        time.Now,
		base:       base,
		cancel:     cancel,
	}
}

// Fetch reads key through the cache:
//   - fresh value: returned as is;
//   - stale value: returned, and a background refetch is started;
//   - missing or invalidated: fetched now, sharing any identical in-flight fetch.
func (c *Cache) Fetch(ctx context.Context, key Key, opts Options, fn func(context.Context) (any, error)) (any, error) {
	if opts.Disabled {
		return nil, ErrDisabled
	}

	c.mu.Lock()
	now := c.now()
	e := c.entries[key]
	if e != nil && e.hasValue && !e.invalid {
		e.accessedAt = now
		value, gen, seen := e.value, e.gen, e.version
		if now.Sub(e.updatedAt) < opts.StaleTime {
			c.stats.Hits++
			c.mu.Unlock()
			return value, nil
		}
		c.stats.StaleHits++
		c.mu.Unlock()
		c.refresh(key, gen, seen, opts, fn)
		return value, nil
	}
	if e == nil {
		e = &entry{accessedAt: now}
		c.entries[key] = e
		c.evictLocked(key)
	}
	gen, seen := e.gen, e.version
	c.stats.Misses++
	c.mu.Unlock()

	return c.load(ctx, key, gen, seen, opts, fn)
}

func flightKey(key Key, gen uint64) string {
	return key.String() + "#" + strconv.FormatUint(gen, 10)
}

// load joins or starts the flight for key at generation gen and waits for it or for ctx.
// seen is the entry version the caller observed; a flight that starts after another
// flight already stored a newer valid result for gen returns that result instead of fetching.
func (c *Cache) load(ctx context.Context, key Key, gen, seen uint64, opts Options, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(flightKey(key, gen), func() (any, error) {
		c.mu.Lock()
		if e := c.entries[key]; e != nil && e.gen == gen && e.hasValue && !e.invalid && e.version != seen {
			value := e.value
			c.mu.Unlock()
			return value, nil
		}
		c.stats.Fetches++
		c.mu.Unlock()

		value, err := c.run(opts, fn)
		c.store(key, gen, value, err)
		return value, err
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) refresh(key Key, gen, seen uint64, opts Options, fn func(context.Context) (any, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.load(c.base, key, gen, seen, opts, fn); err != nil && c.logger != nil {
			c.logger.Warn("[缓存] background refresh of %s failed: %v", key, err)
		}
	}()
}

func (c *Cache) run(opts Options, fn func(context.Context) (any, error)) (any, error) {
	retryable := opts.ShouldRetry
	if retryable == nil {
		retryable = func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	}

	var (
		value any
		err   error
	)
	for attempt := 0; attempt <= opts.Retry; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			case <-c.base.Done():
				return nil, c.base.Err()
			}
		}
		value, err = fn(c.base)
		if err == nil || !retryable(err) {
			return value, err
		}
	}
	return value, err
}

// store records a fetch result unless the entry was invalidated or removed since the fetch started.
func (c *Cache) store(key Key, gen uint64, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.stats.Errors++
		return
	}
	e := c.entries[key]
	if e == nil || e.gen != gen {
		c.stats.Discarded++
		if c.logger != nil {
			c.logger.Debug("[缓存] discarding result for %s fetched before invalidation", key)
		}
		return
	}
	e.value = value
	e.hasValue = true
	e.invalid = false
	e.version++
	e.updatedAt = c.now()
}

// Invalidate marks key for refetch on its next read.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[key]; e != nil {
		c.invalidateLocked(e)
	}
}

// InvalidateEntity invalidates every key of the entity, whatever its params.
func (c *Cache) InvalidateEntity(entity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if k.Entity == entity {
			c.invalidateLocked(e)
			n++
		}
	}
	return n
}

func (c *Cache) invalidateLocked(e *entry) {
	e.gen++
	e.invalid = true
	c.stats.Invalidations++
}

// SetData patches the cached value of key with fn. It reports false when nothing is cached.
func (c *Cache) SetData(key Key, fn func(old any) any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil || !e.hasValue {
		return false
	}
	e.value = fn(e.value)
	e.updatedAt = c.now()
	return true
}

// Peek returns the cached value without fetching. Invalidated values are still returned.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// Remove drops key entirely.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[key]; e != nil {
		e.gen++
		delete(c.entries, key)
	}
}

// Clear drops every entry. Flights still running will not store their results.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		e.gen++
		delete(c.entries, k)
	}
}

// Stats returns a copy of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// evictLocked drops the least recently accessed entry when the cache is over capacity.
func (c *Cache) evictLocked(keep Key) {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}
	var (
		oldest Key
		found  bool
		at     time.Time
	)
	for k, e := range c.entries {
		if k == keep {
			continue
		}
		if !found || e.accessedAt.Before(at) {
			oldest, at, found = k, e.accessedAt, true
		}
	}
	if found {
		c.entries[oldest].gen++
		delete(c.entries, oldest)
		c.stats.Evictions++
	}
}

// Close cancels background refreshes and waits for them.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}
