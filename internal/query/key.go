// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"encoding/json"
	"fmt"
)

// Key identifies a cached resource. It is an ordered sequence of primitive
// values and two keys are equal when their values are equal, in order.
type Key []any

func NewKey(parts ...any) Key {
	return Key(parts)
}

// Hash returns the canonical string form of the key. Only strings, booleans
// and numbers are allowed as parts.
func (k Key) Hash() (string, error) {
	if len(k) == 0 {
		return "", fmt.Errorf("empty key: %w", ErrInvalidKey)
	}

	for i, p := range k {
		switch p.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, json.Number:
		default:
			return "", fmt.Errorf("part %d has unsupported type %T: %w", i, p, ErrInvalidKey)
		}
	}

	b, err := json.Marshal([]any(k))
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(b), nil
}

// Equal reports whether both keys address the same entry.
func (k Key) Equal(other Key) bool {
	a, errA := k.Hash()
	b, errB := other.Hash()
	return errA == nil && errB == nil && a == b
}

func (k Key) String() string {
	if h, err := k.Hash(); err == nil {
		return h
	}
	return fmt.Sprintf("%v", []any(k))
}
