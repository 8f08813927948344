// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/staranto/todoq/internal/mutation"
	"github.com/staranto/todoq/internal/query"
	"github.com/staranto/todoq/internal/todo"
)

// Source is what the screen needs from a session.
type Source interface {
	Todos() query.Entry[[]todo.Record]
	Mutation() mutation.State
	Load()
	Refetch()
	Submit(rec todo.NewRecord) *mutation.Mutation
	Updates() <-chan struct{}
	Done() <-chan struct{}
}

// changedMsg reports a transition of the list entry or the mutation.
type changedMsg struct{}

// closedMsg reports that the source went away.
type closedMsg struct{}

const (
	focusTitle = iota
	focusUser
)

// formHeight is the number of lines above the list.
const formHeight = 6

type Model struct {
	src   Source
	title textinput.Model
	user  textinput.Model
	focus int
	spin  spinner.Model
	list  viewport.Model
	now   func() time.Time
	ready bool
}

// New returns a Model reading from src.
func New(src Source) Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Width = 40
	title.Focus()

	user := textinput.New()
	user.Placeholder = "UserId"
	user.CharLimit = 20
	user.Width = 12

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	list := viewport.New(80, 20)
	list.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Down:     key.NewBinding(key.WithKeys("down")),
		Up:       key.NewBinding(key.WithKeys("up")),
	}

	return Model{
		src:   src,
		title: title,
		user:  user,
		spin:  sp,
		list:  list,
		now:   time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForChange(), m.spin.Tick, textinput.Blink)
}

// load starts the first read. Its transitions arrive through the single
// waitForChange loop started by Init.
func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		m.src.Load()
		return nil
	}
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.src.Updates():
			return changedMsg{}
		case <-m.src.Done():
			return closedMsg{}
		}
	}
}

func (m Model) screen() Screen {
	return Present(m.src.Todos(), m.src.Mutation())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case closedMsg:
		return m, tea.Quit

	case changedMsg:
		m.refreshList()
		return m, m.waitForChange()

	case tea.WindowSizeMsg:
		m.list.Width = msg.Width
		m.list.Height = max(msg.Height-formHeight-2, 1)
		m.ready = true
		m.refreshList()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+r":
		m.src.Refetch()
		return m, nil
	}

	// Inputs are inert unless the form is shown.
	if m.screen().Kind != KindForm {
		return m, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		return m, m.toggleFocus()
	case "enter":
		m.src.Submit(todo.NewRecord{
			Title:  m.title.Value(),
			UserID: todo.UserRef(m.user.Value()),
		})
		return m, nil
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusTitle {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.user, cmd = m.user.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusTitle {
		m.focus = focusUser
		m.title.Blur()
		return m.user.Focus()
	}
	m.focus = focusTitle
	m.user.Blur()
	return m.title.Focus()
}

func (m *Model) refreshList() {
	s := m.screen()
	if !s.ShowList {
		m.list.SetContent("")
		return
	}
	m.list.SetContent(renderRecords(s.Records))
}

func (m Model) View() string {
	s := m.screen()

	switch s.Kind {
	case KindLoading:
		return fmt.Sprintf("%s Loading...\n\n%s\n", m.spin.View(), helpStyle.Render("esc quit"))
	case KindError:
		return fmt.Sprintf("%s\n\n%s\n", errorStyle.Render(ErrorText), helpStyle.Render("ctrl+r retry • esc quit"))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Title"), m.title.View()))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("UserId"), m.user.View()))
	b.WriteString("\n\n")
	b.WriteString(buttonStyle.Render("Submit"))
	b.WriteString("\n\n")

	if s.ShowList {
		if m.ready {
			b.WriteString(m.list.View())
		} else {
			b.WriteString(renderRecords(s.Records))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.footer(s)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) footer(s Screen) string {
	parts := []string{"tab switch field", "enter submit", "ctrl+r refresh", "esc quit"}
	if s.ShowList {
		e := m.src.Todos()
		status := humanize.Comma(int64(len(s.Records))) + " todos, updated " +
			humanize.RelTime(e.UpdatedAt, m.now(), "ago", "from now")
		if e.Stale {
			status += " (stale)"
		}
		parts = append([]string{status}, parts...)
	}
	return strings.Join(parts, " • ")
}

func renderRecords(records []todo.Record) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headingStyle.Render(strconv.Itoa(r.UserID)))
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(r.Title))
	}
	return b.String()
}
