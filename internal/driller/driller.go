// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package driller

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var segmentRegex = regexp.MustCompile(`^(.*?)(?:\[(\d+)\])?$`)

// Driller resolves path against doc. Segments are separated by "." and may
// carry an explicit index, as in "tags[1]". A single element array is
// drilled through without an index so that "items.id" finds items[0].id.
func Driller(doc string, path string) gjson.Result {
	current := gjson.Parse(doc)

	for _, segment := range strings.Split(path, ".") {
		parts := segmentRegex.FindStringSubmatch(segment)
		name, index := parts[1], parts[2]

		if name != "" {
			current = current.Get(escape(name))
		}
		if !current.Exists() {
			return gjson.Result{}
		}

		if index != "" {
			i, _ := strconv.Atoi(index)
			items := current.Array()
			if !current.IsArray() || i >= len(items) {
				return gjson.Result{}
			}
			current = items[i]
			continue
		}

		if current.IsArray() {
			if items := current.Array(); len(items) == 1 {
				current = items[0]
			}
		}
	}

	return current
}

// escape quotes the characters gjson treats as path syntax.
func escape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
