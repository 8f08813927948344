// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package todo is the client for the remote todo service: it lists todo
// records and creates new ones.
package todo
