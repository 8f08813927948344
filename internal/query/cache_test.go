// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	UserID    int
	ID        int
	Title     string
	Completed bool
}

var todosKey = NewKey("todos")

// countingFetcher returns a fetcher that counts invocations and delegates to
// fn with the 1-based call number.
func countingFetcher[T any](calls *atomic.Int32, fn func(ctx context.Context, n int32) (T, error)) Fetcher[T] {
	return func(ctx context.Context) (T, error) {
		n := calls.Add(1)
		return fn(ctx, n)
	}
}

func TestRead_InitialFetch(t *testing.T) {
	c := New[[]item]()
	defer c.Close()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(context.Context, int32) ([]item, error) {
		return []item{{UserID: 1, ID: 1, Title: "A", Completed: false}}, nil
	})

	e, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, e.Status)
	assert.True(t, e.HasData)
	assert.False(t, e.Stale)
	assert.NoError(t, e.Err)
	require.Len(t, e.Data, 1)
	assert.Equal(t, item{UserID: 1, ID: 1, Title: "A"}, e.Data[0])
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, e.Key.Equal(todosKey))
}

func TestRead_DeduplicatesConcurrentReads(t *testing.T) {
	c := New[string]()
	defer c.Close()

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(context.Context, int32) (string, error) {
		<-release
		return "done", nil
	})

	// Start the fetch so every reader below arrives while it is loading.
	e, err := c.Prefetch(todosKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, StatusLoading, e.Status)

	const readers = 16
	var wg sync.WaitGroup
	results := make([]Entry[string], readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Read(context.Background(), todosKey, fetch)
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i, r := range results {
		assert.Equal(t, StatusSuccess, r.Status, "reader %d", i)
		assert.Equal(t, "done", r.Data, "reader %d", i)
	}
}

func TestRead_FreshEntryIsNotRefetched(t *testing.T) {
	c := New[string]()
	defer c.Close()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(context.Context, int32) (string, error) {
		return "v", nil
	})

	for i := 0; i < 5; i++ {
		e, err := c.Read(context.Background(), todosKey, fetch)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, e.Status)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate_NextReadRefetches(t *testing.T) {
	c := New[int32]()
	defer c.Close()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (int32, error) {
		return n, nil
	})

	_, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)

	c.Invalidate(todosKey)

	e, ok := c.Peek(todosKey)
	require.True(t, ok)
	assert.True(t, e.Stale)
	assert.Equal(t, StatusSuccess, e.Status, "no reader, so no refetch yet")
	assert.Equal(t, int32(1), calls.Load())

	e, err = c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, int32(2), e.Data)
	assert.False(t, e.Stale)
	assert.Equal(t, 2, e.Fetches)
}

func TestInvalidate_TransitionsThroughLoading(t *testing.T) {
	c := New[int32]()
	defer c.Close()

	gate := make(chan struct{})
	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (int32, error) {
		if n == 2 {
			<-gate
		}
		return n, nil
	})

	_, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	c.Invalidate(todosKey)

	e, err := c.Prefetch(todosKey, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusLoading, e.Status)
	assert.True(t, e.HasData, "previous data stays visible while loading")
	assert.Equal(t, int32(1), e.Data)

	close(gate)
	e, err = c.Read(context.Background(), todosKey, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, int32(2), e.Data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidate_WithObserverRefetchesInBackground(t *testing.T) {
	c := New[int32]()
	defer c.Close()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (int32, error) {
		return n, nil
	})

	o, err := c.Watch(todosKey)
	require.NoError(t, err)
	defer o.Close()

	_, err = c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)

	c.Invalidate(todosKey)

	assert.Eventually(t, func() bool {
		e := o.Entry()
		return calls.Load() == 2 && e.Success() && !e.Stale && e.Data == 2
	}, time.Second, 5*time.Millisecond)

	select {
	case _, ok := <-o.Updates():
		assert.True(t, ok)
	default:
		t.Fatal("observer was not signalled")
	}
}

func TestInvalidate_UnknownKeyIsNoop(t *testing.T) {
	c := New[int]()
	defer c.Close()

	c.Invalidate(NewKey("nope"))
	assert.Equal(t, 0, c.Len())
}

func TestRead_ErrorKeepsPreviousData(t *testing.T) {
	c := New[string]()
	defer c.Close()

	boom := errors.New("boom")
	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (string, error) {
		if n == 1 {
			return "good", nil
		}
		return "", boom
	})

	_, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)

	c.Invalidate(todosKey)
	e, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err, "fetch failures are entry state, not errors")

	assert.Equal(t, StatusError, e.Status)
	assert.ErrorIs(t, e.Err, boom)
	assert.True(t, e.HasData)
	assert.Equal(t, "good", e.Data)
	assert.False(t, e.ErrorAt.IsZero())
}

func TestRead_ErrorEntryIsRefetched(t *testing.T) {
	c := New[string]()
	defer c.Close()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (string, error) {
		if n == 1 {
			return "", errors.New("down")
		}
		return "up", nil
	})

	e, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, StatusError, e.Status)
	assert.False(t, e.HasData)

	e, err = c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, "up", e.Data)
	assert.NoError(t, e.Err)
}

func TestRead_LastIssuedFetchWins(t *testing.T) {
	c := New[string]()
	defer c.Close()

	releaseOld := make(chan struct{})
	oldCancelled := make(chan struct{})
	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(ctx context.Context, n int32) (string, error) {
		if n == 1 {
			<-ctx.Done()
			close(oldCancelled)
			<-releaseOld
			// Deliberately ignore the cancellation and hand back a result.
			return "old", nil
		}
		return "new", nil
	})

	o, err := c.Watch(todosKey)
	require.NoError(t, err)
	defer o.Close()

	_, err = c.Prefetch(todosKey, fetch)
	require.NoError(t, err)

	// The observer is an active reader, so this issues a second fetch that
	// supersedes the first.
	c.Invalidate(todosKey)

	e, err := c.Read(context.Background(), todosKey, nil)
	require.NoError(t, err)
	assert.Equal(t, "new", e.Data)

	select {
	case <-oldCancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded fetch was not cancelled")
	}
	close(releaseOld)

	assert.Never(t, func() bool {
		e, _ := c.Peek(todosKey)
		return e.Data == "old"
	}, 100*time.Millisecond, 5*time.Millisecond)

	e, _ = c.Peek(todosKey)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.False(t, e.Stale)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRead_FetchIssuedBeforeInvalidationStaysStale(t *testing.T) {
	c := New[int32]()
	defer c.Close()

	gate := make(chan struct{})
	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (int32, error) {
		if n == 1 {
			<-gate
		}
		return n, nil
	})

	_, err := c.Prefetch(todosKey, fetch)
	require.NoError(t, err)

	// Nobody is reading, so the fetch in flight keeps running.
	c.Invalidate(todosKey)
	close(gate)

	assert.Eventually(t, func() bool {
		e, _ := c.Peek(todosKey)
		return e.Success()
	}, time.Second, 5*time.Millisecond)

	e, _ := c.Peek(todosKey)
	assert.True(t, e.Stale)

	e, err = c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	assert.False(t, e.Stale)
	assert.Equal(t, int32(2), e.Data)
}

func TestRead_ContextCancelledWhileWaiting(t *testing.T) {
	c := New[string]()
	defer c.Close()

	release := make(chan struct{})
	defer close(release)
	fetch := func(context.Context) (string, error) {
		<-release
		return "late", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	e, err := c.Read(ctx, todosKey, fetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusLoading, e.Status)
}

func TestRead_NoFetcher(t *testing.T) {
	c := New[string]()
	defer c.Close()

	_, err := c.Read(context.Background(), todosKey, nil)
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestRead_InvalidKey(t *testing.T) {
	c := New[string]()
	defer c.Close()

	_, err := c.Read(context.Background(), NewKey(struct{}{}), func(context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStaleTime(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	c := New[int32](WithStaleTime(time.Minute), WithClock(clock))
	defer c.Close()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, func(_ context.Context, n int32) (int32, error) {
		return n, nil
	})

	_, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)

	advance(30 * time.Second)
	_, err = c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	advance(time.Minute)
	e, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, now, e.UpdatedAt)
}

func TestGC_EvictsInactiveEntries(t *testing.T) {
	c := New[string](WithGCTime(20 * time.Millisecond))
	defer c.Close()

	_, err := c.Read(context.Background(), todosKey, func(context.Context) (string, error) {
		return "x", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGC_KeepsWatchedEntries(t *testing.T) {
	c := New[string](WithGCTime(10 * time.Millisecond))
	defer c.Close()

	o, err := c.Watch(todosKey)
	require.NoError(t, err)

	_, err = c.Read(context.Background(), todosKey, func(context.Context) (string, error) {
		return "x", nil
	})
	require.NoError(t, err)

	assert.Never(t, func() bool { return c.Len() == 0 }, 60*time.Millisecond, 5*time.Millisecond)

	o.Close()
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGC_Disabled(t *testing.T) {
	c := New[string](WithGCTime(0))
	defer c.Close()

	_, err := c.Read(context.Background(), todosKey, func(context.Context) (string, error) {
		return "x", nil
	})
	require.NoError(t, err)
	assert.Never(t, func() bool { return c.Len() == 0 }, 30*time.Millisecond, 5*time.Millisecond)
}

func TestRemove(t *testing.T) {
	c := New[string]()
	defer c.Close()

	fetch := func(context.Context) (string, error) { return "x", nil }

	_, err := c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)
	c.Remove(todosKey)
	assert.Equal(t, 0, c.Len())

	o, err := c.Watch(todosKey)
	require.NoError(t, err)
	defer o.Close()
	_, err = c.Read(context.Background(), todosKey, fetch)
	require.NoError(t, err)

	c.Remove(todosKey)
	assert.Equal(t, 1, c.Len(), "watched entries are reset, not dropped")
	assert.Equal(t, StatusIdle, o.Entry().Status)
	assert.False(t, o.Entry().HasData)
}

func TestRemove_WhileReading(t *testing.T) {
	c := New[string]()
	defer c.Close()

	started := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}

	type result struct {
		e   Entry[string]
		err error
	}
	done := make(chan result, 1)
	go func() {
		e, err := c.Read(context.Background(), todosKey, fetch)
		done <- result{e, err}
	}()

	<-started
	c.Remove(todosKey)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, StatusIdle, r.e.Status)
		assert.False(t, r.e.HasData)
		assert.NoError(t, r.e.Err)
	case <-time.After(time.Second):
		t.Fatal("Read still blocked after Remove")
	}

	e, ok := c.Peek(todosKey)
	if ok {
		assert.Equal(t, StatusIdle, e.Status, "the cancelled fetch must not commit")
	}
}

func TestClose(t *testing.T) {
	c := New[string]()

	cancelled := make(chan struct{})
	_, err := c.Prefetch(todosKey, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	})
	require.NoError(t, err)

	o, err := c.Watch(NewKey("other"))
	require.NoError(t, err)

	c.Close()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}

	_, ok := <-o.Updates()
	assert.False(t, ok, "observer channel is closed")
	o.Close()

	_, err = c.Read(context.Background(), todosKey, nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Watch(todosKey)
	assert.ErrorIs(t, err, ErrClosed)

	c.Close()
}
