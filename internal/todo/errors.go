// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package todo

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedPayload = errors.New("malformed todo payload")
)

// FetchError reports a failed read: the endpoint was unreachable, answered
// with a non-2xx status, or sent a payload that could not be decoded.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch todos from %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch todos from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports a failed create: the endpoint was unreachable or
// answered with a non-2xx status.
type WriteError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *WriteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to submit todo to %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to submit todo to %s: %v", e.URL, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
