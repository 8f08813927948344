// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package view

import "github.com/charmbracelet/lipgloss"

var (
	accent lipgloss.TerminalColor = lipgloss.Color("62")
	muted  lipgloss.TerminalColor = lipgloss.Color("240")
	failed lipgloss.TerminalColor = lipgloss.Color("196")
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle   = lipgloss.NewStyle().PaddingLeft(2)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(failed)
	helpStyle    = lipgloss.NewStyle().Foreground(muted)
	buttonStyle  = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("230")).
			Background(accent)
	labelStyle = lipgloss.NewStyle().Width(8).Foreground(muted)
)
