// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package todo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Record is one todo as served by the read endpoint. Records are never
// modified once decoded.
type Record struct {
	UserID    int    `json:"userId"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// UserRef is the user id as typed by a user. It is sent as a JSON number when
// it parses as an integer and as a string otherwise.
type UserRef string

func (u UserRef) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(u))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(u))
}

// NewRecord is the body posted to the write endpoint.
type NewRecord struct {
	Title  string  `json:"title"`
	UserID UserRef `json:"userId"`
}

// Decode parses a read endpoint payload. The document must be a JSON array
// of objects.
func Decode(doc []byte) ([]Record, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("invalid JSON: %w", ErrMalformedPayload)
	}

	root := gjson.ParseBytes(doc)
	if !root.IsArray() {
		return nil, fmt.Errorf("expected an array, got %s: %w", root.Type, ErrMalformedPayload)
	}

	items := root.Array()
	records := make([]Record, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("element %d is %s, not an object: %w", i, item.Type, ErrMalformedPayload)
		}
		records = append(records, Record{
			UserID:    int(item.Get("userId").Int()),
			ID:        int(item.Get("id").Int()),
			Title:     item.Get("title").String(),
			Completed: item.Get("completed").Bool(),
		})
	}

	return records, nil
}
