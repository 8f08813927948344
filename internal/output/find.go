// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/staranto/todoq/internal/attrs"
)

// rowSource exposes each row as the space joined text of its included
// attrs.
type rowSource struct {
	rows  []map[string]interface{}
	attrs attrs.AttrList
}

func (s rowSource) String(i int) string {
	parts := make([]string, 0, len(s.attrs))
	for _, attr := range s.attrs {
		if !attr.Include || attr.Key == "*" {
			continue
		}
		parts = append(parts, InterfaceToString(s.rows[i][attr.OutputKey]))
	}
	return strings.Join(parts, " ")
}

func (s rowSource) Len() int { return len(s.rows) }

// FindDataset keeps the rows that fuzzy match pattern, best match first. An
// empty pattern keeps every row in its original order.
func FindDataset(rows []map[string]interface{}, attrs attrs.AttrList, pattern string) []map[string]interface{} {
	if pattern == "" {
		return rows
	}

	matches := fuzzy.FindFrom(pattern, rowSource{rows: rows, attrs: attrs})
	found := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		found = append(found, rows[m.Index])
	}
	return found
}
