// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/todoq/internal/obs"
)

// Status is the lifecycle state of one mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of a mutation.
type State struct {
	ID        uint64
	Status    Status
	Err       error
	StartedAt time.Time
	SettledAt time.Time
}

func (s State) Loading() bool { return s.Status == StatusLoading }
func (s State) Failed() bool  { return s.Status == StatusError }

// Operation performs the write. A nil error means success; no payload is
// consumed.
type Operation[I any] func(ctx context.Context, input I) error

// Mutation is the handle for one submission.
type Mutation struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
}

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done is closed once the mutation has settled and, on success, its success
// callback has returned.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles or ctx is done.
func (m *Mutation) Wait(ctx context.Context) (State, error) {
	select {
	case <-m.done:
		return m.State(), nil
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}

func (m *Mutation) set(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Option configures an Executor.
type Option func(*options)

type options struct {
	metrics   *obs.Metrics
	onSettled func(State)
	now       func() time.Time
}

func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithOnSettled registers fn to run after every mutation settles, after the
// success callback.
func WithOnSettled(fn func(State)) Option {
	return func(o *options) { o.onSettled = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Executor starts mutations. Mutations are not serialized; two submissions
// may be in flight at once, each with its own State.
type Executor[I any] struct {
	mu     sync.Mutex
	seq    uint64
	latest *Mutation
	opts   options
}

func NewExecutor[I any](opts ...Option) *Executor[I] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Executor[I]{opts: o}
}

// Execute runs op with input in the background. On success the state moves
// to success and onSuccess is called before the mutation reports done. On
// failure the error is recorded and onSuccess is not called. There is no
// retry.
func (e *Executor[I]) Execute(ctx context.Context, input I, op Operation[I], onSuccess func()) *Mutation {
	e.mu.Lock()
	e.seq++
	m := &Mutation{
		state: State{
			ID:        e.seq,
			Status:    StatusLoading,
			StartedAt: e.opts.now(),
		},
		done: make(chan struct{}),
	}
	e.latest = m
	e.mu.Unlock()

	log.Debugf("mutation %d: started", m.state.ID)

	go e.run(ctx, m, input, op, onSuccess)
	return m
}

func (e *Executor[I]) run(ctx context.Context, m *Mutation, input I, op Operation[I], onSuccess func()) {
	defer close(m.done)

	s := m.State()
	err := op(ctx, input)
	s.SettledAt = e.opts.now()

	if err != nil {
		s.Status = StatusError
		s.Err = err
		m.set(s)
		log.WithError(err).Warnf("mutation %d: failed", s.ID)
	} else {
		s.Status = StatusSuccess
		m.set(s)
		log.Debugf("mutation %d: succeeded", s.ID)
		if onSuccess != nil {
			onSuccess()
		}
	}

	e.opts.metrics.ObserveMutation(s.Status.String())
	if e.opts.onSettled != nil {
		e.opts.onSettled(s)
	}
}

// Latest returns the state of the most recently started mutation, or an
// idle state if there is none.
func (e *Executor[I]) Latest() State {
	e.mu.Lock()
	m := e.latest
	e.mu.Unlock()

	if m == nil {
		return State{Status: StatusIdle}
	}
	return m.State()
}

// Reset forgets the latest mutation so Latest reports idle again. Mutations
// still in flight keep running.
func (e *Executor[I]) Reset() {
	e.mu.Lock()
	e.latest = nil
	e.mu.Unlock()
}
