// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/todoq/internal/obs"
)

// DefaultGCTime is how long an inactive entry is kept before it is evicted.
const DefaultGCTime = 5 * time.Minute

// Fetcher produces the data for a key. It is the only place network calls
// happen. The context is cancelled when the fetch is superseded or the cache
// is closed.
type Fetcher[T any] func(ctx context.Context) (T, error)

// flight is one issued fetch. done is closed when the flight commits or is
// superseded, whichever comes first.
type flight struct {
	gen    uint64
	done   chan struct{}
	cancel context.CancelFunc
}

// record is the cache's private bookkeeping around an Entry.
type record[T any] struct {
	id      string
	entry   Entry[T]
	fetcher Fetcher[T]
	flight  *flight
	// gen is the generation of the most recently issued fetch and
	// invalidGen the generation current at the last invalidation. A commit
	// from a fetch issued at or before invalidGen leaves the entry stale.
	gen        uint64
	invalidGen uint64
	observers  map[*Observer[T]]struct{}
	waiters    int
	gcTimer    *time.Timer
	gcSeq      uint64
}

func (r *record[T]) active() bool {
	return len(r.observers) > 0 || r.waiters > 0
}

// Cache is a keyed fetch cache. The zero value is not usable; use New.
type Cache[T any] struct {
	mu        sync.Mutex
	records   map[string]*record[T]
	gcTime    time.Duration
	staleTime time.Duration
	metrics   *obs.Metrics
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	gcTime    time.Duration
	staleTime time.Duration
	metrics   *obs.Metrics
	now       func() time.Time
}

// WithGCTime sets how long an entry with no readers and no fetch in flight
// is kept. A value <= 0 disables eviction.
func WithGCTime(d time.Duration) Option {
	return func(o *options) { o.gcTime = d }
}

// WithStaleTime sets the age after which a successful entry is treated as
// stale by reads. Zero, the default, means entries only go stale through
// Invalidate.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now for timestamps and stale time checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[T any](opts ...Option) *Cache[T] {
	o := options{
		gcTime: DefaultGCTime,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache[T]{
		records:   make(map[string]*record[T]),
		gcTime:    o.gcTime,
		staleTime: o.staleTime,
		metrics:   o.metrics,
		now:       o.now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Read returns the entry for key, fetching it first when it is missing,
// stale or failed. Callers that arrive while a fetch is in flight wait for
// that fetch instead of starting another. Read blocks until the entry
// settles, or until the key is removed. Fetch failures are reported through the entry; the returned error
// is only ever ctx.Err(), ErrClosed, ErrInvalidKey or ErrNoFetcher.
//
// A nil fetch reuses the fetcher last registered for the key.
func (c *Cache[T]) Read(ctx context.Context, key Key, fetch Fetcher[T]) (Entry[T], error) {
	id, err := key.Hash()
	if err != nil {
		return Entry[T]{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Entry[T]{}, ErrClosed
	}

	rec := c.acquire(id, key)
	if err := c.resolve(rec, fetch); err != nil {
		c.release(rec)
		return rec.entry, err
	}

	rec.waiters++
	defer func() {
		rec.waiters--
		c.release(rec)
	}()

	for rec.flight != nil {
		f := rec.flight
		c.mu.Unlock()
		select {
		case <-f.done:
		case <-ctx.Done():
			c.mu.Lock()
			return rec.entry, ctx.Err()
		}
		c.mu.Lock()
		if c.closed {
			return rec.entry, ErrClosed
		}
	}

	return rec.entry, nil
}

// Prefetch applies the same decision as Read but never waits. It returns the
// entry as it stands after a fetch, if one was needed, has been started.
func (c *Cache[T]) Prefetch(key Key, fetch Fetcher[T]) (Entry[T], error) {
	id, err := key.Hash()
	if err != nil {
		return Entry[T]{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Entry[T]{}, ErrClosed
	}

	rec := c.acquire(id, key)
	err = c.resolve(rec, fetch)
	snap := rec.entry
	c.release(rec)
	return snap, err
}

// Peek returns the current entry for key without fetching.
func (c *Cache[T]) Peek(key Key) (Entry[T], bool) {
	id, err := key.Hash()
	if err != nil {
		return Entry[T]{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		return Entry[T]{Key: key}, false
	}
	return rec.entry, true
}

// Invalidate marks key stale. When the entry has an active reader, that is
// an open Observer or a caller blocked in Read, a refetch starts immediately
// with the last used fetcher and supersedes any fetch already in flight.
// Otherwise the next Read refetches. Unknown keys are ignored.
func (c *Cache[T]) Invalidate(key Key) {
	id, err := key.Hash()
	if err != nil {
		log.WithError(err).Warn("ignoring invalidation of bad key")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	rec, ok := c.records[id]
	if !ok {
		log.Debugf("invalidate: no entry for %s", id)
		return
	}

	c.metrics.ObserveInvalidate(id)
	rec.entry.Stale = true
	rec.invalidGen = rec.gen

	if rec.active() && rec.fetcher != nil {
		log.Debugf("invalidate: refetching %s for %d reader(s)", id, len(rec.observers)+rec.waiters)
		c.start(rec)
		return
	}

	log.Debugf("invalidate: %s marked stale, refetch deferred", id)
	c.notify(rec)
}

// Remove drops the cached state for key and cancels its fetch. Entries that
// are still in use, by an Observer or a caller blocked in Read, are reset to
// idle instead of being dropped. A blocked Read then returns the idle entry.
func (c *Cache[T]) Remove(key Key) {
	id, err := key.Hash()
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		return
	}

	c.abandon(rec)
	c.stopGC(rec)

	if rec.active() {
		rec.entry = Entry[T]{Key: rec.entry.Key}
		rec.invalidGen = rec.gen
		c.notify(rec)
		return
	}

	delete(c.records, id)
	c.metrics.SetEntries(len(c.records))
}

// Len returns the number of entries held.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Close cancels every fetch in flight, stops eviction timers and closes all
// observers. Reads after Close fail with ErrClosed.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()

	for _, rec := range c.records {
		c.abandon(rec)
		c.stopGC(rec)
		for o := range rec.observers {
			o.closeLocked()
		}
	}
}

// acquire returns the record for id, creating it when missing. Any pending
// eviction is cancelled. Must hold c.mu.
func (c *Cache[T]) acquire(id string, key Key) *record[T] {
	rec, ok := c.records[id]
	if !ok {
		rec = &record[T]{
			id:        id,
			entry:     Entry[T]{Key: key, Status: StatusIdle},
			observers: make(map[*Observer[T]]struct{}),
		}
		c.records[id] = rec
		c.metrics.SetEntries(len(c.records))
		log.Debugf("cache: new entry %s", id)
	}
	c.stopGC(rec)
	return rec
}

// resolve registers fetch and starts a fetch when the entry needs one.
// Must hold c.mu.
func (c *Cache[T]) resolve(rec *record[T], fetch Fetcher[T]) error {
	if fetch != nil {
		rec.fetcher = fetch
	}

	switch {
	case rec.flight != nil:
		log.Debugf("cache: joining in-flight fetch of %s", rec.id)
		c.metrics.ObserveRead(rec.id, obs.ReadDedup)
	case c.needsFetch(rec):
		if rec.fetcher == nil {
			return fmt.Errorf("%s: %w", rec.id, ErrNoFetcher)
		}
		c.metrics.ObserveRead(rec.id, obs.ReadMiss)
		c.start(rec)
	default:
		log.Debugf("cache hit: %s", rec.id)
		c.metrics.ObserveRead(rec.id, obs.ReadHit)
	}
	return nil
}

// needsFetch reports whether a read must go to the fetcher. Failed entries
// are always refetched so that re-triggering a read is a recovery path.
func (c *Cache[T]) needsFetch(rec *record[T]) bool {
	e := rec.entry
	switch {
	case e.Status == StatusIdle, e.Status == StatusError, e.Stale:
		return true
	case c.staleTime > 0 && e.Status == StatusSuccess:
		return c.now().Sub(e.UpdatedAt) >= c.staleTime
	}
	return false
}

// start issues a new fetch for rec, superseding the one in flight if any.
// Must hold c.mu.
func (c *Cache[T]) start(rec *record[T]) {
	c.abandon(rec)

	rec.gen++
	fctx, cancel := context.WithCancel(c.ctx)
	f := &flight{gen: rec.gen, done: make(chan struct{}), cancel: cancel}
	rec.flight = f

	rec.entry.Status = StatusLoading
	rec.entry.Fetches++
	c.metrics.ObserveFetch(rec.id)
	c.notify(rec)

	log.Debugf("cache: fetching %s (gen %d)", rec.id, f.gen)

	fetch := rec.fetcher
	go func() {
		data, err := fetch(fctx)
		c.commit(rec, f, data, err)
	}()
}

// abandon cancels the fetch in flight for rec and releases its waiters so
// they can follow whatever replaces it. Its result is discarded on arrival.
// Must hold c.mu.
func (c *Cache[T]) abandon(rec *record[T]) {
	f := rec.flight
	if f == nil {
		return
	}
	rec.flight = nil
	f.cancel()
	close(f.done)
}

// commit applies the outcome of flight f, unless f is no longer the newest
// fetch for rec.
func (c *Cache[T]) commit(rec *record[T], f *flight, data T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.flight != f {
		log.Debugf("cache: discarding superseded result for %s (gen %d, current %d)", rec.id, f.gen, rec.gen)
		c.metrics.ObserveDiscard(rec.id)
		return
	}

	rec.flight = nil
	f.cancel()

	now := c.now()
	if err != nil {
		log.WithError(err).Debugf("cache: fetch of %s failed", rec.id)
		c.metrics.ObserveFetchError(rec.id)
		rec.entry.Status = StatusError
		rec.entry.Err = err
		rec.entry.ErrorAt = now
	} else {
		rec.entry.Status = StatusSuccess
		rec.entry.Data = data
		rec.entry.HasData = true
		rec.entry.Err = nil
		rec.entry.UpdatedAt = now
		rec.entry.Stale = f.gen <= rec.invalidGen
	}

	close(f.done)
	c.notify(rec)
	c.release(rec)
}

// notify signals every observer of rec. Must hold c.mu.
func (c *Cache[T]) notify(rec *record[T]) {
	for o := range rec.observers {
		o.signal()
	}
}

// release schedules eviction of rec once nothing uses it. Must hold c.mu.
func (c *Cache[T]) release(rec *record[T]) {
	if c.closed || c.gcTime <= 0 || rec.active() || rec.flight != nil || rec.gcTimer != nil {
		return
	}

	rec.gcSeq++
	seq := rec.gcSeq
	rec.gcTimer = time.AfterFunc(c.gcTime, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if rec.gcSeq != seq || rec.active() || rec.flight != nil {
			return
		}
		if current, ok := c.records[rec.id]; !ok || current != rec {
			return
		}
		delete(c.records, rec.id)
		c.metrics.ObserveEvict(rec.id)
		c.metrics.SetEntries(len(c.records))
		log.Debugf("cache: evicted inactive entry %s", rec.id)
	})
}

// stopGC cancels a pending eviction. Must hold c.mu.
func (c *Cache[T]) stopGC(rec *record[T]) {
	if rec.gcTimer == nil {
		return
	}
	rec.gcTimer.Stop()
	rec.gcTimer = nil
	rec.gcSeq++
}
