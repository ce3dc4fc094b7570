// Package tasklist renders the sidebar of previously created quests.
package tasklist

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/microwins/internal/keys"
	"github.com/nhle/microwins/internal/model"
	"github.com/nhle/microwins/internal/theme"
)

// TaskSelectedMsg asks the controller to load a previously created quest.
type TaskSelectedMsg struct {
	TaskID int64
}

// TaskDeleteRequestedMsg asks the controller to delete a quest.
type TaskDeleteRequestedMsg struct {
	TaskID int64
}

// RefreshRequestedMsg asks for a sidebar refresh.
type RefreshRequestedMsg struct{}

// Model is the Bubble Tea model for the sidebar task list.
type Model struct {
	entries []model.SidebarEntry
	cursor  int
	keys    *keys.KeyMap
	width   int
	height  int
}

// New creates a sidebar list model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetEntries replaces the displayed list, clamping the cursor.
func (m *Model) SetEntries(entries []model.SidebarEntry) {
	m.entries = entries
	if m.cursor >= len(entries) {
		m.cursor = len(entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SetSize updates panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages for the sidebar list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Select):
		if len(m.entries) > 0 {
			id := m.entries[m.cursor].ID
			return m, func() tea.Msg { return TaskSelectedMsg{TaskID: id} }
		}
	case key.Matches(keyMsg, m.keys.DeleteTask):
		if len(m.entries) > 0 {
			id := m.entries[m.cursor].ID
			return m, func() tea.Msg { return TaskDeleteRequestedMsg{TaskID: id} }
		}
	case key.Matches(keyMsg, m.keys.Refresh):
		return m, func() tea.Msg { return RefreshRequestedMsg{} }
	}

	return m, nil
}

// View renders the sidebar list.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("Your quests")

	if len(m.entries) == 0 {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			title,
			theme.HelpStyle.Render("No quests yet."),
		)
	}

	lines := make([]string, 0, len(m.entries)+1)
	lines = append(lines, title)
	for i, e := range m.entries {
		line := truncate(e.Title, m.width-4)
		if i == m.cursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
