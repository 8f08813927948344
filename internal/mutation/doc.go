// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package mutation runs write operations and tracks their status. Each
// submission gets its own state, and a success callback lets the caller
// invalidate cached reads.
package mutation
