// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

// Observer is an active reader of one key. While it is open the entry is
// never evicted and invalidation refetches it in the background.
type Observer[T any] struct {
	c       *Cache[T]
	rec     *record[T]
	updates chan struct{}
	closed  bool
}

// Watch registers an observer for key, creating an idle entry if none exists
// yet. Watching does not fetch; pair it with Prefetch or Read.
func (c *Cache[T]) Watch(key Key) (*Observer[T], error) {
	id, err := key.Hash()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	rec := c.acquire(id, key)
	o := &Observer[T]{
		c:       c,
		rec:     rec,
		updates: make(chan struct{}, 1),
	}
	rec.observers[o] = struct{}{}
	return o, nil
}

// Updates delivers a signal after each transition of the entry. Signals are
// coalesced, so a receiver should read Entry rather than count them. The
// channel is closed when the observer or the cache is closed.
func (o *Observer[T]) Updates() <-chan struct{} {
	return o.updates
}

// Entry returns the current snapshot of the observed entry.
func (o *Observer[T]) Entry() Entry[T] {
	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	return o.rec.entry
}

// Close unregisters the observer. It is safe to call more than once.
func (o *Observer[T]) Close() {
	o.c.mu.Lock()
	defer o.c.mu.Unlock()

	if o.closed {
		return
	}
	o.closeLocked()
	delete(o.rec.observers, o)
	o.c.release(o.rec)
}

// closeLocked must hold c.mu.
func (o *Observer[T]) closeLocked() {
	if o.closed {
		return
	}
	o.closed = true
	close(o.updates)
}

// signal must hold c.mu.
func (o *Observer[T]) signal() {
	if o.closed {
		return
	}
	select {
	case o.updates <- struct{}{}:
	default:
	}
}
