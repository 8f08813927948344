// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package view is the interactive todo screen. Present decides what is shown
// from the list entry and the latest mutation; Model is the bubbletea program
// that re-renders on every transition of either.
package view
