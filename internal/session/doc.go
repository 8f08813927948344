// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package session wires the todo client to one query cache and one mutation
// executor for the life of the process. A successful submission invalidates
// the "todos" entry so that watchers see the refetched list.
package session
