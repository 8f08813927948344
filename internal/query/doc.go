// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package query implements the client-side fetch cache. Entries are keyed by
// a Key, concurrent reads of one key share a single fetch, invalidation marks
// an entry stale and refetches it in the background while it is being
// watched, and only the most recently issued fetch of a key may commit.
package query
