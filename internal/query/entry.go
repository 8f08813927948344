// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"
	"time"
)

var (
	ErrClosed     = errors.New("query cache is closed")
	ErrInvalidKey = errors.New("invalid query key")
	ErrNoFetcher  = errors.New("no fetcher registered for key")
)

// Status is the lifecycle state of an Entry.
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

// Entry is a snapshot of the cached state for one Key. Data is shared with
// the cache and must be treated as read-only.
type Entry[T any] struct {
	Key    Key
	Status Status
	Data   T
	// HasData distinguishes a zero Data from one that was never fetched. It
	// stays true through later failures (stale-while-error).
	HasData bool
	Err     error
	Stale   bool
	// UpdatedAt is when Data was last committed, ErrorAt when Err was.
	UpdatedAt time.Time
	ErrorAt   time.Time
	// Fetches counts fetcher invocations issued for the key.
	Fetches int
}

func (e Entry[T]) Idle() bool    { return e.Status == StatusIdle }
func (e Entry[T]) Loading() bool { return e.Status == StatusLoading }
func (e Entry[T]) Success() bool { return e.Status == StatusSuccess }
func (e Entry[T]) Failed() bool  { return e.Status == StatusError }
