// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package todo

import (
	"encoding/json"
	"fmt"

	diff "github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Delta renders the difference between two record lists as an ASCII diff.
// It returns an empty string when the lists are equal.
func Delta(prev, next []Record) (string, error) {
	left, err := json.Marshal(map[string]any{"todos": prev})
	if err != nil {
		return "", err
	}
	right, err := json.Marshal(map[string]any{"todos": next})
	if err != nil {
		return "", err
	}

	d, err := diff.New().Compare(left, right)
	if err != nil {
		return "", fmt.Errorf("failed to compare records: %w", err)
	}
	if !d.Modified() {
		return "", nil
	}

	var base map[string]any
	if err := json.Unmarshal(left, &base); err != nil {
		return "", err
	}

	f := formatter.NewAsciiFormatter(base, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
	})
	return f.Format(d)
}
