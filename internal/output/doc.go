// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output turns a JSON array of records into what a command prints.
// Rows are filtered, fuzzy matched, transformed and sorted, then written as
// a table, JSON, YAML or the raw payload.
package output
