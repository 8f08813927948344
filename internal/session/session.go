// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/todoq/internal/mutation"
	"github.com/staranto/todoq/internal/obs"
	"github.com/staranto/todoq/internal/query"
	"github.com/staranto/todoq/internal/todo"
)

// TodosKey addresses the list of todo records.
var TodosKey = query.NewKey("todos")

// Service is the remote side of a Session.
type Service interface {
	Fetch(ctx context.Context) ([]todo.Record, error)
	Create(ctx context.Context, rec todo.NewRecord) error
}

type Options struct {
	GCTime    time.Duration
	StaleTime time.Duration
	Metrics   *obs.Metrics
}

// Session owns the cache and executor used by every view of the todo list.
type Session struct {
	svc   Service
	cache *query.Cache[[]todo.Record]
	exec  *mutation.Executor[todo.NewRecord]
	watch *query.Observer[[]todo.Record]

	ctx     context.Context
	cancel  context.CancelFunc
	changed chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	last []todo.Record
}

// New builds a Session and starts watching TodosKey. Nothing is fetched
// until Load or Refetch is called.
func New(svc Service, opts Options) (*Session, error) {
	qopts := []query.Option{
		query.WithGCTime(opts.GCTime),
		query.WithStaleTime(opts.StaleTime),
		query.WithMetrics(opts.Metrics),
	}

	s := &Session{
		svc:     svc,
		cache:   query.New[[]todo.Record](qopts...),
		changed: make(chan struct{}, 1),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.exec = mutation.NewExecutor[todo.NewRecord](
		mutation.WithMetrics(opts.Metrics),
		mutation.WithOnSettled(func(mutation.State) { s.signal() }),
	)

	w, err := s.cache.Watch(TodosKey)
	if err != nil {
		s.cancel()
		s.cache.Close()
		return nil, err
	}
	s.watch = w

	s.wg.Add(1)
	go s.forward()

	return s, nil
}

func (s *Session) fetch(ctx context.Context) ([]todo.Record, error) {
	return s.svc.Fetch(ctx)
}

// Load starts the initial read, or joins the one in flight. It does not
// wait.
func (s *Session) Load() {
	if _, err := s.cache.Prefetch(TodosKey, s.fetch); err != nil {
		log.WithError(err).Warn("session: failed to start read")
	}
}

// Read loads the list and waits for it to settle.
func (s *Session) Read(ctx context.Context) (query.Entry[[]todo.Record], error) {
	return s.cache.Read(ctx, TodosKey, s.fetch)
}

// Refetch forces a new read of the list, including after a failure. A
// settled mutation is cleared; one still in flight is left alone.
func (s *Session) Refetch() {
	if !s.exec.Latest().Loading() {
		s.exec.Reset()
	}
	s.cache.Invalidate(TodosKey)
	s.Load()
	s.signal()
}

// Submit creates rec on the remote service. The returned mutation settles
// after the cache has been invalidated on success.
func (s *Session) Submit(rec todo.NewRecord) *mutation.Mutation {
	m := s.exec.Execute(s.ctx, rec, s.svc.Create, func() {
		s.cache.Invalidate(TodosKey)
	})
	s.signal()
	return m
}

// Todos returns the current snapshot of the list entry.
func (s *Session) Todos() query.Entry[[]todo.Record] {
	return s.watch.Entry()
}

// Mutation returns the state of the latest submission.
func (s *Session) Mutation() mutation.State {
	return s.exec.Latest()
}

// Updates delivers a coalesced signal whenever the list entry or the latest
// mutation changes.
func (s *Session) Updates() <-chan struct{} {
	return s.changed
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close cancels outstanding work and releases the cache.
func (s *Session) Close() {
	s.cancel()
	s.watch.Close()
	s.cache.Close()
	s.wg.Wait()
}

func (s *Session) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// forward relays cache transitions until the observer is closed.
func (s *Session) forward() {
	defer s.wg.Done()

	for range s.watch.Updates() {
		s.logDelta(s.watch.Entry())
		s.signal()
	}
}

func (s *Session) logDelta(e query.Entry[[]todo.Record]) {
	if !e.Success() {
		return
	}

	s.mu.Lock()
	prev := s.last
	s.last = e.Data
	s.mu.Unlock()

	if prev == nil {
		log.Debugf("session: loaded %d todos", len(e.Data))
		return
	}

	d, err := todo.Delta(prev, e.Data)
	if err != nil {
		log.WithError(err).Debug("session: failed to diff todos")
		return
	}
	if d == "" {
		log.Debug("session: refetch returned identical todos")
		return
	}
	log.Debugf("session: todos changed\n%s", d)
}
